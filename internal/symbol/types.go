// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package symbol implements the symbol extractor: a concrete-syntax-tree
// walker that decomposes a source file into a nested, typed symbol tree.
//
// The extractor consumes an opaque *sitter.Tree produced by
// github.com/smacker/go-tree-sitter; it never inspects the grammar beyond
// node-type strings and named field access, so adding a language means
// adding a shape table, not changing the walker.
package symbol

import (
	"encoding/json"
	"fmt"
)

// Position is a 0-based (line, column) location in a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a half-open [Start, End) span. Contains uses inclusive
// comparisons on both ends, checking column only when the line in
// question equals a boundary line.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether p falls within r, treating both ends as
// inclusive when p's line matches the boundary line.
func (r Range) Contains(p Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Column < r.Start.Column {
		return false
	}
	if p.Line == r.End.Line && p.Column > r.End.Column {
		return false
	}
	return true
}

// SymbolKind is the closed set of symbol categories the extractor,
// registry, and storage layer agree on. It round-trips to and from a
// lowercase string form via String/ParseSymbolKind.
type SymbolKind int

const (
	SymbolKindUnknown SymbolKind = iota
	SymbolKindFunction
	SymbolKindMethod
	SymbolKindClass
	SymbolKindInterface
	SymbolKindEnum
	SymbolKindConstant
	SymbolKindVariable
	SymbolKindType
	SymbolKindModule
	SymbolKindNamespace
	SymbolKindProperty
	SymbolKindTrait
	SymbolKindImpl
	SymbolKindStruct
)

var symbolKindNames = map[SymbolKind]string{
	SymbolKindUnknown:   "unknown",
	SymbolKindFunction:  "function",
	SymbolKindMethod:    "method",
	SymbolKindClass:     "class",
	SymbolKindInterface: "interface",
	SymbolKindEnum:      "enum",
	SymbolKindConstant:  "constant",
	SymbolKindVariable:  "variable",
	SymbolKindType:      "type",
	SymbolKindModule:    "module",
	SymbolKindNamespace: "namespace",
	SymbolKindProperty:  "property",
	SymbolKindTrait:     "trait",
	SymbolKindImpl:      "impl",
	SymbolKindStruct:    "struct",
}

var symbolKindValues = func() map[string]SymbolKind {
	m := make(map[string]SymbolKind, len(symbolKindNames))
	for k, v := range symbolKindNames {
		m[v] = k
	}
	return m
}()

// String returns the lowercase wire form of the kind, "unknown" for any
// value outside the closed enumeration.
func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the kind as its string form.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a string form, rejecting anything not in the
// closed enumeration.
func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, ok := symbolKindValues[s]
	if !ok {
		return fmt.Errorf("symbol: unknown SymbolKind %q", s)
	}
	*k = kind
	return nil
}

// ParseSymbolKind converts a string to a SymbolKind, or an error if the
// string is not one of the closed enumeration's names.
func ParseSymbolKind(s string) (SymbolKind, error) {
	kind, ok := symbolKindValues[s]
	if !ok {
		return SymbolKindUnknown, fmt.Errorf("symbol: unknown SymbolKind %q", s)
	}
	return kind, nil
}

// SymbolKey is the identity under which a symbol is registered: the
// tuple (path, name, kind). Two extractions of the same unchanged
// source must produce the same set of SymbolKeys.
type SymbolKey struct {
	Path string
	Name string
	Kind SymbolKind
}

// ExtractedSymbol is the transient value the extractor produces for one
// declarative node; it is consumed during ingest and never persisted
// directly (the Registry mints a durable Symbol from it).
type ExtractedSymbol struct {
	Name       string
	Kind       SymbolKind
	Range      Range
	Content    string
	DocComment string // empty when absent
	Children   []*ExtractedSymbol
}
