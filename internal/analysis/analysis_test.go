// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JudgeZ/semindex/internal/symbol"
)

const goSource = `package main

func add(a, b int) int {
	return a + b
}

func main() {
	sum := add(1, 2)
	println(sum)
}
`

func TestParse_UnsupportedLanguage(t *testing.T) {
	_, err := Parse(context.Background(), []byte("x"), "cobol")
	assert.Error(t, err)
}

func TestIdentifierAtPosition_FindsFunctionName(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	name, ok := f.IdentifierAtPosition(symbol.Position{Line: 2, Column: 6})
	require.True(t, ok)
	assert.Equal(t, "add", name)
}

func TestIdentifierAtPosition_OutOfRange(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	_, ok := f.IdentifierAtPosition(symbol.Position{Line: 999, Column: 0})
	assert.False(t, ok)
}

func TestFindDeclaration_LocatesFunction(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	node, ok := f.FindDeclaration("add")
	require.True(t, ok)
	assert.Equal(t, "function_declaration", node.Type())
}

func TestFindDeclaration_UnknownNameNotFound(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	_, ok := f.FindDeclaration("nope")
	assert.False(t, ok)
}

func TestFindReferences_CountsAllOccurrences(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	refs := f.FindReferences("add")
	assert.Len(t, refs, 2) // declaration + call site
}

func TestAnalyzeGraph_EmitsCallEdgeBetweenFunctions(t *testing.T) {
	f, err := Parse(context.Background(), []byte(goSource), "go")
	require.NoError(t, err)
	defer f.Close()

	nodes, edges := f.AnalyzeGraph("main.go")
	require.Len(t, nodes, 2)

	var found bool
	for _, e := range edges {
		if e.From == "main.go::main" && e.To == "main.go::add" && e.Relation == "calls" {
			found = true
		}
	}
	assert.True(t, found, "expected a calls edge from main to add, got %+v", edges)
}

func TestAnalyzeGraph_NoCallsProducesNoEdges(t *testing.T) {
	src := "package main\n\nfunc isolated() int {\n\treturn 1\n}\n"
	f, err := Parse(context.Background(), []byte(src), "go")
	require.NoError(t, err)
	defer f.Close()

	nodes, edges := f.AnalyzeGraph("iso.go")
	require.Len(t, nodes, 1)
	assert.Empty(t, edges)
}
