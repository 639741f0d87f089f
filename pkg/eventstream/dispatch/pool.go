// Package dispatch provides an asynchronous worker pool that hands memory
// events to an eventstream.Publisher.
//
// The pool decouples publishing from the engine's call path: Notify never
// blocks and a full queue drops the event rather than slowing an add.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultQueueSize      uint = 256
	defaultPublishTimeout      = 5 * time.Second
)

// Config is the configuration options for the dispatch pool.
type Config struct {
	// Publisher receives every dequeued event. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds a single publish call.
	PublishTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.MemoryEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("dispatch pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pool{
		config: c,
		queue:  make(chan *eventstream.MemoryEvent, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Notify submits an event for publishing.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the event being dropped.
func (p *Pool) Notify(event *eventstream.MemoryEvent) bool {
	if event == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"memory_id", event.MemoryID,
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_type", event.EventType,
			"memory_id", event.MemoryID,
		)
		return false
	}
}

// Close signals workers to stop, waits for queued events to drain, and
// closes the publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("dispatch worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("dispatch worker stopped", "worker_id", id)
}

// publish delivers one event. Errors are logged but never retried.
func (p *Pool) publish(event *eventstream.MemoryEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishMemory(ctx, event); err != nil {
		p.logger.Warn("failed to publish memory event",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
