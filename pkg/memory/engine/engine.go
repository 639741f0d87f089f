// Package engine is the memory search orchestrator. It runs the write path
// (validate, stamp, deduplicate, insert) and the read path (build filter,
// search or list, format) against the embedding and vector store
// collaborators.
//
// An Engine holds only configuration and collaborator handles, so its
// methods are safe for concurrent use. The owner scope is an explicit
// argument on every call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/metadata"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultLimit is the number of results returned when a search does not
	// ask for a specific count.
	DefaultLimit = 10

	// MaxLimit caps the number of results of a single search.
	MaxLimit = 100
)

// Notifier receives memory events. Implementations must not block; the
// dispatch pool drops events when its queue is full.
type Notifier interface {
	Notify(event *eventstream.MemoryEvent) bool
}

// DedupConfig controls duplicate detection on add.
type DedupConfig struct {
	// Enabled turns duplicate detection on for every add that does not opt
	// out with SkipDuplicateCheck.
	Enabled bool

	// Threshold is the default similarity threshold. Zero uses
	// dedup.DefaultThreshold.
	Threshold float64

	// Policy is the default duplicate policy. Empty uses dedup.DefaultPolicy.
	Policy dedup.Policy
}

// Config wires an Engine to its collaborators.
type Config struct {
	Store    vector.Driver
	Embedder embeddings.Embedder

	// Notifier is optional. When set it receives an event after every
	// successful add, merge and delete.
	Notifier Notifier

	Dedup  DedupConfig
	Limits metadata.Limits

	// DefaultLimit is used when a search passes no limit. Zero uses
	// DefaultLimit.
	DefaultLimit int

	// Clock is used for creation and merge times. Defaults to time.Now.
	Clock func() time.Time

	Logger *slog.Logger
}

// Engine implements the memory operations.
type Engine struct {
	store     vector.Driver
	embedder  embeddings.Embedder
	notifier  Notifier
	validator *metadata.Validator
	detector  *dedup.Detector

	dedupEnabled bool
	threshold    float64
	policy       dedup.Policy
	defaultLimit int

	now    func() time.Time
	logger *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("engine requires a vector store")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("engine requires an embedder")
	}

	threshold := cfg.Dedup.Threshold
	if threshold == 0 {
		threshold = dedup.DefaultThreshold
	}
	if err := dedup.ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	policy, err := dedup.ParsePolicy(string(cfg.Dedup.Policy))
	if err != nil {
		return nil, err
	}

	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > MaxLimit {
		defaultLimit = MaxLimit
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		store:        cfg.Store,
		embedder:     cfg.Embedder,
		notifier:     cfg.Notifier,
		validator:    metadata.NewValidator(cfg.Limits),
		detector:     dedup.NewDetector(cfg.Store, logger, now),
		dedupEnabled: cfg.Dedup.Enabled,
		threshold:    threshold,
		policy:       policy,
		defaultLimit: defaultLimit,
		now:          now,
		logger:       logger,
	}, nil
}

// embed maps every embedder failure to memory.ErrEmbeddingUnavailable.
func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %v", memory.ErrEmbeddingUnavailable, err)
	}
	if len(emb) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", memory.ErrEmbeddingUnavailable)
	}
	return emb, nil
}

func (e *Engine) notify(eventType string, record memory.Record, similarity *float64) {
	if e.notifier == nil {
		return
	}
	ev := eventstream.NewMemoryEvent(eventType, record, e.now())
	ev.Similarity = similarity
	e.notifier.Notify(ev)
}

func (e *Engine) limit(n int) int {
	switch {
	case n <= 0:
		return e.defaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
