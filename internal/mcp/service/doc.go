// Package service wires the MCP protocol transport to the control daemon.
//
// It is the transport adapter layer: the package runs MCP over stdio and
// delegates business meaning to the tool handlers in the domain package.
package service
