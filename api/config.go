// Package api provides the HTTP API server for adding, searching and deleting
// memories.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MCPHandler, when set, is mounted at /mcp so MCP clients share the
	// API listener.
	MCPHandler http.Handler
}
