// Package main starts the control daemon and handles termination.
//
// The process owns the session registry: members attach over WebSocket,
// observers watch aggregate state, and dispatchers send explicit playback
// commands over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	controlcmd "github.com/hushwing/mediadeck/internal/cmd/control"
	"github.com/hushwing/mediadeck/internal/platform/config"
)

func main() {
	cfg, err := controlcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[CONTROL] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controlcmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
