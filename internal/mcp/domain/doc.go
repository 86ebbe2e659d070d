// Package domain defines the MCP tool surface for the control daemon.
//
// Each tool pairs a schema definition with a handler that delegates to the
// daemon's HTTP API; the package carries no transport concerns of its own.
package domain
