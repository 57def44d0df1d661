// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JudgeZ/semindex/internal/apperr"
	"github.com/JudgeZ/semindex/internal/symbol"
)

// Registry mints and tracks the (path, name, kind) → stable-id
// bijection. Both maps are guarded by their own RWMutex; any mutation
// touching both acquires indexMu before symbolsMu to avoid deadlock.
type Registry struct {
	store Store

	indexMu sync.RWMutex
	index   map[symbol.SymbolKey]string

	symbolsMu sync.RWMutex
	symbols   map[string]*Symbol
}

// New hydrates a Registry from store.QueryAllSymbols.
func New(ctx context.Context, store Store) (*Registry, error) {
	existing, err := store.QueryAllSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: hydrate: %w", apperr.ErrBackend)
	}

	r := &Registry{
		store:   store,
		index:   make(map[symbol.SymbolKey]string, len(existing)),
		symbols: make(map[string]*Symbol, len(existing)),
	}
	for i := range existing {
		sym := existing[i]
		r.index[sym.Key] = sym.ID
		r.symbols[sym.ID] = &sym
	}
	return r, nil
}

// GetOrCreate returns key's id, minting one on first sight. Concurrent
// callers racing on the same unknown key are safe: the miss path
// re-checks the index under the exclusive lock before inserting.
// Creation only touches the in-memory maps — the caller persists the
// symbol's content via Update once it has extracted it.
func (r *Registry) GetOrCreate(_ context.Context, key symbol.SymbolKey) (string, error) {
	r.indexMu.RLock()
	if id, ok := r.index[key]; ok {
		r.indexMu.RUnlock()
		return id, nil
	}
	r.indexMu.RUnlock()

	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	if id, ok := r.index[key]; ok {
		return id, nil
	}

	id := uuid.NewString()
	now := time.Now()
	sym := &Symbol{
		ID:        id,
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.symbolsMu.Lock()
	r.symbols[id] = sym
	r.symbolsMu.Unlock()

	r.index[key] = id
	return id, nil
}

// Update mutates id's content/location/doc comment, bumps UpdatedAt,
// and persists the result. An unknown id is a silent no-op, a known
// sharp edge: nothing is stored and no error is returned.
func (r *Registry) Update(ctx context.Context, id, content string, location symbol.Range, docComment, commitID string) error {
	r.symbolsMu.Lock()
	sym, ok := r.symbols[id]
	if !ok {
		r.symbolsMu.Unlock()
		return nil
	}

	sym.Content = content
	sym.Location = location
	sym.DocComment = docComment
	if commitID != "" {
		sym.CommitID = commitID
	}
	sym.UpdatedAt = time.Now()
	snapshot := *sym
	r.symbolsMu.Unlock()

	if err := r.store.StoreSymbol(ctx, snapshot); err != nil {
		return fmt.Errorf("registry: store update: %w", apperr.ErrBackend)
	}
	return nil
}

// MarkDeleted records id's terminating commit without removing it from
// the map — the id is never retired, only its lifecycle advances.
func (r *Registry) MarkDeleted(ctx context.Context, id, commitID string) error {
	r.symbolsMu.Lock()
	sym, ok := r.symbols[id]
	if !ok {
		r.symbolsMu.Unlock()
		return nil
	}
	sym.CommitID = commitID
	sym.UpdatedAt = time.Now()
	snapshot := *sym
	r.symbolsMu.Unlock()

	if err := r.store.StoreSymbol(ctx, snapshot); err != nil {
		return fmt.Errorf("registry: store deletion: %w", apperr.ErrBackend)
	}
	return nil
}

// FindByName returns the ids of every symbol whose name contains substr.
func (r *Registry) FindByName(substr string) []string {
	r.symbolsMu.RLock()
	defer r.symbolsMu.RUnlock()

	var ids []string
	for id, sym := range r.symbols {
		if strings.Contains(sym.Key.Name, substr) {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetSymbolsInFile returns every symbol registered under path.
func (r *Registry) GetSymbolsInFile(path string) []Symbol {
	r.symbolsMu.RLock()
	defer r.symbolsMu.RUnlock()

	var out []Symbol
	for _, sym := range r.symbols {
		if sym.Key.Path == path {
			out = append(out, *sym)
		}
	}
	return out
}

// Get returns the current snapshot of id, if known.
func (r *Registry) Get(id string) (Symbol, bool) {
	r.symbolsMu.RLock()
	defer r.symbolsMu.RUnlock()

	sym, ok := r.symbols[id]
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}
