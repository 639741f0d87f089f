// Package mcp provides an MCP (Model Context Protocol) server exposing the
// recall memory engine as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	"github.com/papercomputeco/recall/pkg/utils"
)

// Memories is the engine surface the MCP tools call.
type Memories interface {
	Add(ctx context.Context, scope memory.OwnerScope, req engine.AddRequest) (*engine.AddResult, error)
	Search(ctx context.Context, scope memory.OwnerScope, req engine.SearchRequest) (*engine.SearchResponse, error)
	Get(ctx context.Context, scope memory.OwnerScope, id string) (*engine.Result, error)
	Delete(ctx context.Context, scope memory.OwnerScope, id string) error
}

type Config struct {
	// Memories executes the tool calls
	Memories Memories

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "recall",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Memories == nil {
			return nil, errors.New("memory engine is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        addToolName,
			Description: addDescription,
		}, s.handleAdd)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription(),
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        getToolName,
			Description: getDescription,
		}, s.handleGet)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        deleteToolName,
			Description: deleteDescription,
		}, s.handleDelete)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
