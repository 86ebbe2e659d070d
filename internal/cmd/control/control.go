// Package control parses control daemon flags and starts the server.
package control

import (
	"context"
	"flag"
	"time"

	server "github.com/hushwing/mediadeck/internal/control/app"
	platformcmd "github.com/hushwing/mediadeck/internal/platform/cmd"
)

// Config holds control daemon command configuration.
type Config struct {
	HTTPAddr        string        `env:"MEDIADECK_HTTP_ADDR" envDefault:"localhost:8080"`
	GRPCAddr        string        `env:"MEDIADECK_GRPC_ADDR" envDefault:"localhost:9090"`
	DBPath          string        `env:"MEDIADECK_DB_PATH"`
	ShutdownTimeout time.Duration `env:"MEDIADECK_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables gRPC)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite activity log path (empty disables the activity log)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the control daemon and blocks until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceControl, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:        cfg.HTTPAddr,
			GRPCAddr:        cfg.GRPCAddr,
			DBPath:          cfg.DBPath,
			ShutdownTimeout: cfg.ShutdownTimeout,
		})
	})
}
