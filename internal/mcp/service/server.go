package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hushwing/mediadeck/internal/controlclient"
	"github.com/hushwing/mediadeck/internal/mcp/domain"
	platformgrpc "github.com/hushwing/mediadeck/internal/platform/grpc"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "mediadeck"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"

	// healthDialTimeout bounds the startup wait for the daemon's gRPC
	// health service.
	healthDialTimeout = 30 * time.Second
	// healthCheckInterval paces the background daemon liveness probe.
	healthCheckInterval = 30 * time.Second
)

// Config configures the MCP sidecar.
type Config struct {
	// DaemonURL is the base URL of the control daemon HTTP API.
	DaemonURL string
	// Grant is an optional bearer grant attached to mutating daemon calls.
	Grant string
	// HealthAddr is the daemon's gRPC health endpoint. When set, startup
	// blocks until the daemon reports SERVING and the connection is
	// monitored for the lifetime of the server.
	HealthAddr string
}

// Server hosts the MCP server for one control daemon.
type Server struct {
	mcpServer *mcp.Server
	conn      *grpc.ClientConn
}

// New builds an MCP server bound to the daemon at cfg.DaemonURL.
func New(cfg Config) (*Server, error) {
	client, err := newDaemonClient(cfg)
	if err != nil {
		return nil, err
	}
	return newServer(client), nil
}

func newDaemonClient(cfg Config) (*controlclient.Client, error) {
	opts := []controlclient.Option{}
	if cfg.Grant != "" {
		opts = append(opts, controlclient.WithGrant(cfg.Grant))
	}
	client, err := controlclient.New(cfg.DaemonURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure daemon client: %w", err)
	}
	return client, nil
}

func newServer(api domain.ControlAPI) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, domain.SessionListTool(), domain.SessionListHandler(api))
	mcp.AddTool(mcpServer, domain.SessionGetTool(), domain.SessionGetHandler(api))
	mcp.AddTool(mcpServer, domain.SessionDispatchTool(), domain.SessionDispatchHandler(api))
	mcp.AddTool(mcpServer, domain.ActivityListTool(), domain.ActivityListHandler(api))

	return &Server{mcpServer: mcpServer}
}

// Run is the service entrypoint and blocks until context cancellation. When a
// health address is configured it gates startup on the daemon reporting
// SERVING, so the stdio session never opens against a dead daemon.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}

	if cfg.HealthAddr != "" {
		conn, err := dialDaemonHealth(ctx, cfg.HealthAddr)
		if err != nil {
			return err
		}
		server.conn = conn

		monitorCtx, monitorCancel := context.WithCancel(ctx)
		defer monitorCancel()
		go server.monitorHealth(monitorCtx)
	}

	return server.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// Close releases the health connection held by the server.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return err
	}
	s.conn = nil
	return nil
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close health connection: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close health connection: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// monitorHealth periodically probes the daemon's health service. Failures are
// logged but do not stop the MCP session; individual tool calls surface
// daemon errors on their own.
func (s *Server) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn == nil {
				continue
			}

			healthClient := grpc_health_v1.NewHealthClient(s.conn)
			callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: ""})
			cancel()

			if err != nil {
				log.Printf("daemon health check failed: %v", err)
			} else if response.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				log.Printf("daemon health check status: %s", response.GetStatus().String())
			}
		}
	}
}

func dialDaemonHealth(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	logf := func(format string, args ...any) {
		log.Printf("daemon %s", fmt.Sprintf(format, args...))
	}
	conn, err := platformgrpc.DialWithHealth(ctx, nil, addr, healthDialTimeout, logf, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		var dialErr *platformgrpc.DialError
		if errors.As(err, &dialErr) {
			if dialErr.Stage == platformgrpc.DialStageConnect {
				return nil, fmt.Errorf("connect to control daemon at %s: %w", addr, dialErr.Err)
			}
			return nil, dialErr.Err
		}
		return nil, err
	}
	return conn, nil
}
