package engine

import (
	"context"
	"errors"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/vector"
)

// Get returns one of scope's memories. A memory owned by another scope is
// reported as memory.ErrNotFound.
func (e *Engine) Get(ctx context.Context, scope memory.OwnerScope, id string) (*Result, error) {
	record, err := e.owned(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	r := newResult(record, nil, matchSets{})
	return &r, nil
}

// Delete removes one of scope's memories after checking ownership.
func (e *Engine) Delete(ctx context.Context, scope memory.OwnerScope, id string) error {
	record, err := e.owned(ctx, scope, id)
	if err != nil {
		return err
	}

	deleted, err := e.store.Delete(ctx, id)
	if err != nil {
		e.logger.Error("deleting memory failed", "scope", scope.String(), "id", id, "error", err)
		return memory.NewStorageError("delete", err)
	}
	if !deleted {
		return memory.ErrNotFound
	}

	e.logger.Debug("memory deleted", "scope", scope.String(), "id", id)
	e.notify(eventstream.EventTypeMemoryDeleted, record, nil)
	return nil
}

func (e *Engine) owned(ctx context.Context, scope memory.OwnerScope, id string) (memory.Record, error) {
	if err := scope.Validate(); err != nil {
		return memory.Record{}, err
	}
	if id == "" {
		return memory.Record{}, memory.ErrNotFound
	}

	doc, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, vector.ErrNotFound) {
			return memory.Record{}, memory.ErrNotFound
		}
		return memory.Record{}, memory.NewStorageError("get", err)
	}

	if !scope.Owns(doc.Payload) {
		return memory.Record{}, memory.ErrNotFound
	}
	return doc.Payload, nil
}
