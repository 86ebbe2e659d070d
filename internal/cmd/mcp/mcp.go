// Package mcp parses MCP sidecar flags and starts the stdio server.
package mcp

import (
	"context"
	"flag"

	mcpservice "github.com/hushwing/mediadeck/internal/mcp/service"
	platformcmd "github.com/hushwing/mediadeck/internal/platform/cmd"
)

// Config holds MCP command configuration.
type Config struct {
	DaemonURL  string `env:"MEDIADECK_DAEMON_URL" envDefault:"http://localhost:8080"`
	HealthAddr string `env:"MEDIADECK_GRPC_ADDR" envDefault:"localhost:9090"`
	Grant      string `env:"MEDIADECK_GRANT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DaemonURL, "daemon-url", cfg.DaemonURL, "control daemon base URL")
	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "control daemon gRPC health address (empty disables the startup gate)")
	fs.StringVar(&cfg.Grant, "grant", cfg.Grant, "bearer grant for mutating daemon calls")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		return mcpservice.Run(ctx, mcpservice.Config{
			DaemonURL:  cfg.DaemonURL,
			Grant:      cfg.Grant,
			HealthAddr: cfg.HealthAddr,
		})
	})
}
