// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JudgeZ/semindex/internal/symbol"
)

type fakeStore struct {
	mu      sync.Mutex
	seed    []Symbol
	stored  []Symbol
	failAll bool
}

func (f *fakeStore) QueryAllSymbols(_ context.Context) ([]Symbol, error) {
	return f.seed, nil
}

func (f *fakeStore) StoreSymbol(_ context.Context, sym Symbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return assert.AnError
	}
	f.stored = append(f.stored, sym)
	return nil
}

func key(path, name string, kind symbol.SymbolKind) symbol.SymbolKey {
	return symbol.SymbolKey{Path: path, Name: name, Kind: kind}
}

func TestRegistry_GetOrCreate_MintsOnce(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	k := key("a.go", "Foo", symbol.SymbolKindFunction)
	id1, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)

	id2, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestRegistry_GetOrCreate_ConcurrentSameKey(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	k := key("a.go", "Foo", symbol.SymbolKindFunction)

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			id, err := r.GetOrCreate(context.Background(), k)
			require.NoError(t, err)
			ids[idx] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegistry_Hydrate_FromStore(t *testing.T) {
	k := key("a.go", "Foo", symbol.SymbolKindFunction)
	store := &fakeStore{seed: []Symbol{{ID: "existing-id", Key: k}}}

	r, err := New(context.Background(), store)
	require.NoError(t, err)

	id, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
}

func TestRegistry_Update_PersistsAndBumpsTimestamp(t *testing.T) {
	store := &fakeStore{}
	r, err := New(context.Background(), store)
	require.NoError(t, err)

	k := key("a.go", "Foo", symbol.SymbolKindFunction)
	id, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)

	before, ok := r.Get(id)
	require.True(t, ok)

	err = r.Update(context.Background(), id, "func Foo() {}", symbol.Range{}, "doc", "commit-1")
	require.NoError(t, err)

	after, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "func Foo() {}", after.Content)
	assert.Equal(t, "doc", after.DocComment)
	assert.Equal(t, "commit-1", after.CommitID)
	assert.True(t, !after.UpdatedAt.Before(before.UpdatedAt))
	assert.Len(t, store.stored, 1)
}

func TestRegistry_Update_UnknownIDIsSilentNoop(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	err = r.Update(context.Background(), "does-not-exist", "x", symbol.Range{}, "", "")
	assert.NoError(t, err)
}

func TestRegistry_MarkDeleted_KeepsEntryInMap(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	k := key("a.go", "Foo", symbol.SymbolKindFunction)
	id, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)

	require.NoError(t, r.MarkDeleted(context.Background(), id, "commit-2"))

	sym, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "commit-2", sym.CommitID)

	// id is still resolvable via get_or_create: deletion never retires it.
	again, err := r.GetOrCreate(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestRegistry_FindByName_SubstringMatch(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	_, err = r.GetOrCreate(context.Background(), key("a.go", "HandleAgent", symbol.SymbolKindFunction))
	require.NoError(t, err)
	_, err = r.GetOrCreate(context.Background(), key("b.go", "HandleChat", symbol.SymbolKindFunction))
	require.NoError(t, err)
	_, err = r.GetOrCreate(context.Background(), key("c.go", "Other", symbol.SymbolKindFunction))
	require.NoError(t, err)

	ids := r.FindByName("Handle")
	assert.Len(t, ids, 2)
}

func TestRegistry_GetSymbolsInFile_ExactPathMatch(t *testing.T) {
	r, err := New(context.Background(), &fakeStore{})
	require.NoError(t, err)

	_, err = r.GetOrCreate(context.Background(), key("a.go", "Foo", symbol.SymbolKindFunction))
	require.NoError(t, err)
	_, err = r.GetOrCreate(context.Background(), key("a.go", "Bar", symbol.SymbolKindFunction))
	require.NoError(t, err)
	_, err = r.GetOrCreate(context.Background(), key("b.go", "Baz", symbol.SymbolKindFunction))
	require.NoError(t, err)

	symbols := r.GetSymbolsInFile("a.go")
	assert.Len(t, symbols, 2)

	symbols = r.GetSymbolsInFile("nonexistent.go")
	assert.Empty(t, symbols)
}
