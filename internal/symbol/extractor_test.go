// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package symbol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findByName(symbols []*ExtractedSymbol, name string) *ExtractedSymbol {
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func TestExtractor_UnsupportedLanguage(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("whatever"), "cobol")

	var unsupported *UnsupportedLanguageError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "cobol", unsupported.LanguageID)
}

func TestExtractor_TypeScript_Function(t *testing.T) {
	source := `/**
 * Greets a user by name.
 */
export function greet(name: string): string {
    return "hi " + name;
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "typescript")
	require.NoError(t, err)

	fn := findByName(symbols, "greet")
	require.NotNil(t, fn)
	assert.Equal(t, SymbolKindFunction, fn.Kind)
	assert.Contains(t, fn.DocComment, "Greets a user by name")
	assert.Equal(t, 3, fn.Range.Start.Line)
}

func TestExtractor_TypeScript_ClassWithMethods(t *testing.T) {
	source := `export class UserService {
    private cache: Map<string, string> = new Map();

    getUser(id: string): string {
        return this.cache.get(id) ?? "";
    }

    setUser(id: string, name: string): void {
        this.cache.set(id, name);
    }
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "typescript")
	require.NoError(t, err)

	class := findByName(symbols, "UserService")
	require.NotNil(t, class)
	assert.Equal(t, SymbolKindClass, class.Kind)

	names := make([]string, 0, len(class.Children))
	for _, child := range class.Children {
		names = append(names, child.Name)
	}
	assert.Equal(t, []string{"cache", "getUser", "setUser"}, names)
}

func TestExtractor_TypeScript_Interface(t *testing.T) {
	source := `export interface User {
    id: number;
    name: string;
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "typescript")
	require.NoError(t, err)

	iface := findByName(symbols, "User")
	require.NotNil(t, iface)
	assert.Equal(t, SymbolKindInterface, iface.Kind)
}

func TestExtractor_Rust_StructWithDocComment(t *testing.T) {
	source := `/// Represents a connected peer.
struct Peer {
    id: u64,
    addr: String,
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "rust")
	require.NoError(t, err)

	peer := findByName(symbols, "Peer")
	require.NotNil(t, peer)
	assert.Equal(t, SymbolKindStruct, peer.Kind)
	assert.Equal(t, "/// Represents a connected peer.", peer.DocComment)
}

func TestExtractor_Rust_ImplSynthesizesName(t *testing.T) {
	source := `struct Peer;

impl Peer {
    fn connect(&self) {}
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "rust")
	require.NoError(t, err)

	impl := findByName(symbols, "impl Peer")
	require.NotNil(t, impl)
	assert.Equal(t, SymbolKindImpl, impl.Kind)

	method := findByName(impl.Children, "connect")
	require.NotNil(t, method)
	assert.Equal(t, SymbolKindFunction, method.Kind)
}

func TestExtractor_Go_StructAndInterface(t *testing.T) {
	source := `package example

// Store persists things.
type Store interface {
	Get(key string) (string, error)
}

// Config holds settings.
type Config struct {
	Name string
}

func New() *Config {
	return &Config{}
}
`
	e := NewExtractor()
	symbols, err := e.Extract(context.Background(), []byte(source), "go")
	require.NoError(t, err)

	store := findByName(symbols, "Store")
	require.NotNil(t, store)
	assert.Equal(t, SymbolKindInterface, store.Kind)
	assert.Empty(t, store.DocComment) // a plain // comment is not a doc comment

	cfg := findByName(symbols, "Config")
	require.NotNil(t, cfg)
	assert.Equal(t, SymbolKindStruct, cfg.Kind)

	field := findByName(cfg.Children, "Name")
	require.NotNil(t, field)
	assert.Equal(t, SymbolKindProperty, field.Kind)

	fn := findByName(symbols, "New")
	require.NotNil(t, fn)
	assert.Equal(t, SymbolKindFunction, fn.Kind)
}

func TestExtractor_DeterministicAcrossRuns(t *testing.T) {
	source := `export class Widget {
    render(): void {}
}
`
	e := NewExtractor()
	first, err := e.Extract(context.Background(), []byte(source), "typescript")
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), []byte(source), "typescript")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, first[0].Range, second[0].Range)
}
