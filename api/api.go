package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/engine"
)

// Memories is the engine surface the API exposes.
type Memories interface {
	Add(ctx context.Context, scope memory.OwnerScope, req engine.AddRequest) (*engine.AddResult, error)
	Search(ctx context.Context, scope memory.OwnerScope, req engine.SearchRequest) (*engine.SearchResponse, error)
	TemporalSearch(ctx context.Context, scope memory.OwnerScope, expr, query string, limit int) (*engine.SearchResponse, error)
	SearchByTags(ctx context.Context, scope memory.OwnerScope, tags []string, matchAll bool, query string, limit int) (*engine.SearchResponse, error)
	SearchByPeople(ctx context.Context, scope memory.OwnerScope, people []string, query string, limit int) (*engine.SearchResponse, error)
	SearchByTopic(ctx context.Context, scope memory.OwnerScope, topic, query string, limit int) (*engine.SearchResponse, error)
	Get(ctx context.Context, scope memory.OwnerScope, id string) (*engine.Result, error)
	Delete(ctx context.Context, scope memory.OwnerScope, id string) error
}

// Server is the API server for the recall memory engine.
type Server struct {
	config   Config
	memories Memories
	logger   *slog.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, memories Memories, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		UnescapePath:          true,
	})

	s := &Server{
		config:   config,
		memories: memories,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	// Fixed segments are registered before /:id so they win the match.
	v1 := app.Group("/v1/memories", s.requireOwner)
	v1.Post("/", s.handleAdd)
	v1.Get("/search", s.handleSearch)
	v1.Get("/temporal/:expr", s.handleTemporal)
	v1.Get("/tags/:tags", s.handleTags)
	v1.Get("/people/:people", s.handlePeople)
	v1.Get("/topic/:topic", s.handleTopic)
	v1.Get("/:id", s.handleGet)
	v1.Delete("/:id", s.handleDelete)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Handler exposes the routes as a net/http handler, for mounting the API
// behind another server or serving it from httptest.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
