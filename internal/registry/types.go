// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package registry implements the Symbol Registry: the authority that
// mints stable identifiers for extracted symbols and reconciles them
// against persisted state across re-indexings.
//
// The Registry owns exactly two in-memory structures — a key→id index
// and an id→Symbol map — each guarded by its own RWMutex. It never
// owns durable storage; that belongs to whatever implements Store.
package registry

import (
	"context"
	"time"

	"github.com/JudgeZ/semindex/internal/symbol"
)

// Symbol is the Registry's durable record for one extracted symbol. It
// is the unit Store persists and reloads; ExtractedSymbol, by
// contrast, is a transient value discarded after ingest.
type Symbol struct {
	ID         string
	Key        symbol.SymbolKey
	Content    string
	Location   symbol.Range
	DocComment string
	Children   []string
	Parent     string // empty when absent
	CommitID   string // empty when absent
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the minimal durability contract the Registry needs:
// hydration on construction and persistence on update. internal/storage
// implements this against Postgres; tests use an in-memory fake.
type Store interface {
	QueryAllSymbols(ctx context.Context) ([]Symbol, error)
	StoreSymbol(ctx context.Context, sym Symbol) error
}
