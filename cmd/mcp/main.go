// Package main starts the MCP sidecar on stdio.
//
// The process is a protocol adapter around the control daemon HTTP API so
// session state remains owned by the daemon.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/hushwing/mediadeck/internal/cmd/mcp"
	"github.com/hushwing/mediadeck/internal/platform/config"
)

func main() {
	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[MCP] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve MCP: %v", err)
	}
}
