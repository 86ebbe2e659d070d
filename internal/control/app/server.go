// Package server hosts the media control daemon.
//
// The daemon owns the session registry and exposes it over an HTTP JSON API
// and WebSocket endpoints, persists session activity to SQLite, and serves a
// gRPC health endpoint for orchestration and sidecars.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hushwing/mediadeck/internal/mediacontrol"
	"github.com/hushwing/mediadeck/internal/storage"
	"github.com/hushwing/mediadeck/internal/storage/sqlite"
	"github.com/hushwing/mediadeck/internal/telemetry"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second

	// HealthServiceName is the gRPC health service identifier for the daemon.
	HealthServiceName = "mediadeck.control"
)

// Config defines the inputs for the control daemon.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	DBPath            string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the control daemon process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration

	httpServer   *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *health.Server

	service *mediacontrol.Service
	store   *sqlite.Store
	watch   *watchHub
	grants  GrantConfig

	// attachMu serialises session lookup-or-create on member attach so two
	// concurrent attaches for the same id share one controller.
	attachMu sync.Mutex

	recorderStop func()
	recorderDone chan struct{}
	closeOnce    sync.Once
}

// New creates a configured control daemon.
func New(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("HTTP address is required")
	}
	readHeaderTimeout := config.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}
	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	grants, err := LoadGrantConfigFromEnv(nil)
	if err != nil {
		return nil, fmt.Errorf("load grant config: %w", err)
	}

	var store *sqlite.Store
	if dbPath := strings.TrimSpace(config.DBPath); dbPath != "" {
		store, err = sqlite.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open activity store: %w", err)
		}
	}

	server := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: shutdownTimeout,
		service:         mediacontrol.NewService(),
		store:           store,
		watch:           newWatchHub(),
		grants:          grants,
	}

	if grpcAddr := strings.TrimSpace(config.GRPCAddr); grpcAddr != "" {
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = server.closeStore()
			return nil, fmt.Errorf("listen gRPC on %s: %w", grpcAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

		server.grpcServer = grpcServer
		server.grpcListener = listener
		server.health = healthServer
	}

	server.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           server.newHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	server.startRecorder()
	return server, nil
}

// Service exposes the session registry for in-process consumers and tests.
func (s *Server) Service() *mediacontrol.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// startRecorder consumes the registry event stream, persisting each event and
// fanning it out to watch sockets. Runs until the subscription is cancelled.
func (s *Server) startRecorder() {
	events, cancel := s.service.Subscribe()
	done := make(chan struct{})
	emitter := telemetry.NewEmitter(s.activityStore())

	go func() {
		defer close(done)
		for event := range events {
			if err := emitter.Record(context.Background(), event); err != nil {
				log.Printf("record session activity: %v", err)
			}
			s.watch.broadcast(event)
		}
	}()

	s.recorderStop = cancel
	s.recorderDone = done
}

func (s *Server) activityStore() storage.ActivityStore {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store
}

// controllerFor returns the listed controller for a session id, creating an
// unlisted one when no members are currently attached.
func (s *Server) controllerFor(id string) (*mediacontrol.Controller, error) {
	if c, ok := s.service.Controller(id); ok {
		return c, nil
	}
	return s.service.NewController(id)
}

// attachMember binds a new membership for the session, sharing the session's
// controller with any concurrently attaching members.
func (s *Server) attachMember(id string) (*mediacontrol.Membership, error) {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	controller, err := s.controllerFor(id)
	if err != nil {
		return nil, err
	}
	return controller.Attach(), nil
}

// Run creates and serves a control daemon until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := New(config)
	if err != nil {
		return fmt.Errorf("init control server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve control: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP and gRPC servers until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("control server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 2)
	log.Printf("control server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()
	if s.grpcServer != nil {
		log.Printf("control health endpoint listening on %s", s.grpcListener.Addr())
		go func() {
			serveErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.recorderStop != nil {
			s.recorderStop()
		}
		if s.recorderDone != nil {
			<-s.recorderDone
		}
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.grpcListener != nil {
			if err := s.grpcListener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Printf("close control gRPC listener: %v", err)
			}
		}
		if err := s.closeStore(); err != nil {
			log.Printf("close activity store: %v", err)
		}
	})
}

func (s *Server) closeStore() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
