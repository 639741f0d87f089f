// Package servecmder provides the serve command, which runs the recall HTTP
// API with the MCP endpoint mounted at /mcp.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/recall/pkg/embeddings/utils"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/dispatch"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/engine"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
	"github.com/papercomputeco/recall/pkg/vector"
	vectorutils "github.com/papercomputeco/recall/pkg/vector/utils"
)

type serveCommander struct {
	configDir string
	debug     bool
	json      bool
	logFile   string
	noMCP     bool

	listen              string
	sqlitePath          string
	postgresDSN         string
	vectorStoreProvider string
	vectorStoreTarget   string
	collection          string
	embeddingProvider   string
	embeddingTarget     string
	embeddingModel      string
	embeddingDimensions uint
	dedupPolicy         string
	eventsProvider      string
	eventsTopic         string

	cfg    *config.Config
	logger *slog.Logger
}

// serveFlags are the registry flags serve binds into viper.
var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagDedupPolicy,
	config.FlagEventsProvider,
	config.FlagEventsTopic,
}

const serveLongDesc string = `Run the recall server.

Serves the memory HTTP API under /v1/memories and an MCP endpoint at /mcp on
the same listener. Settings come from flags, RECALL_* environment variables,
config.toml in the .recall/ directory and built-in defaults, in that order.

Examples:
  recall serve
  recall serve --vector-store-provider qdrant --vector-store-target localhost:6334
  recall serve --vector-store-provider pgvector --postgres postgres://localhost/recall
  recall serve --events-provider kafka
  recall serve --log-file ~/.recall/serve.log`

const serveShortDesc string = "Run the recall API and MCP server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorStoreProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorStoreTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDimensions)
	config.AddStringFlag(cmd, config.Flags, config.FlagDedupPolicy, &cmder.dedupPolicy)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventsTopic, &cmder.eventsTopic)
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Emit JSON logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var logFile io.Writer
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logFile = f
	}

	c.logger = newLogger(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), c.json, c.debug, logFile)

	store, err := c.newVectorDriver(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := c.newEmbedder()
	if err != nil {
		return err
	}
	defer embedder.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}

	pool, err := dispatch.NewPool(&dispatch.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event dispatch pool: %w", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			c.logger.Warn("closing event dispatch pool", "error", err)
		}
	}()

	eng, err := engine.New(engine.Config{
		Store:    store,
		Embedder: embedder,
		Notifier: pool,
		Dedup: engine.DedupConfig{
			Enabled:   c.cfg.Dedup.Enabled,
			Threshold: c.cfg.Dedup.Threshold,
			Policy:    dedup.Policy(c.cfg.Dedup.Policy),
		},
		Limits: metadata.Limits{
			MaxItems:      c.cfg.Metadata.MaxItems,
			MaxItemLength: c.cfg.Metadata.MaxItemLength,
		},
		DefaultLimit: c.cfg.Search.DefaultLimit,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating memory engine: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Memories: eng,
		Noop:     c.noMCP,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{ListenAddr: c.cfg.API.Listen}
	if !c.noMCP {
		apiConfig.MCPHandler = mcpServer.Handler()
	}
	apiServer := api.NewServer(apiConfig, eng, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}

// newLogger builds the serve logger. Stdout gets JSON with --json, the
// charmbracelet handler on a terminal and slog's text handler otherwise.
// A non-nil logFile additionally receives every record as JSON.
func newLogger(stdout io.Writer, isTTY, jsonOut, debug bool, logFile io.Writer) *slog.Logger {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(jsonOut),
		logger.WithPretty(isTTY && !jsonOut),
		logger.WithWriter(stdout),
	)
	if logFile == nil {
		return console
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(logFile),
	)
	return logger.Multi(console, file)
}

func (c *serveCommander) newVectorDriver(ctx context.Context) (vector.Driver, error) {
	provider := c.cfg.VectorStore.Provider
	target := c.cfg.VectorTarget()

	if provider == vectorutils.ProviderSQLite && target == "" {
		path, err := dotdir.NewManager().DatabasePath(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving sqlite path: %w", err)
		}
		target = path
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: provider,
		TargetURL:    target,
		Collection:   c.cfg.VectorStore.Collection,
		APIKey:       c.cfg.VectorStore.APIKey,
		Dimensions:   c.cfg.Embedding.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	c.logger.Info("using vector store", "provider", provider)
	return driver, nil
}

func (c *serveCommander) newEmbedder() (embeddings.Embedder, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.cfg.Embedding.Provider,
		TargetURL:    c.cfg.Embedding.Target,
		Model:        c.cfg.Embedding.Model,
		APIKey:       c.cfg.Embedding.APIKey,
		Dimensions:   int(c.cfg.Embedding.Dimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	c.logger.Info("using embedder",
		"provider", c.cfg.Embedding.Provider,
		"model", c.cfg.Embedding.Model,
	)
	return embedder, nil
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.cfg.Events.Provider {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		if len(c.cfg.Events.Brokers) == 0 {
			return nil, errors.New("events.brokers is required for the kafka events provider")
		}
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.cfg.Events.Brokers,
			Topic:   c.cfg.Events.Topic,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing memory events", "provider", "kafka", "topic", c.cfg.Events.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", c.cfg.Events.Provider)
	}
}
