// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package analysis provides shallow single-file navigation over a
// parsed CST: identifier lookup at a position, naive declaration and
// reference resolution, and a same-file call graph. It shares the
// *sitter.Node tree the symbol extractor consumes and never crosses
// file boundaries.
package analysis

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/JudgeZ/semindex/internal/symbol"
)

var grammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"python":     python.GetLanguage,
	"rust":       rust.GetLanguage,
}

// identifierKinds is the closed set of node types treated as
// identifier-class for lookup and reference purposes.
var identifierKinds = map[string]bool{
	"identifier":                     true,
	"property_identifier":            true,
	"shorthand_property_identifier":  true,
	"type_identifier":                true,
	"predefined_type":                true,
}

// declarationKinds is the set of node types find_declaration searches
// among, drawn from the Go, JavaScript/TypeScript and Rust grammars.
// Python's function_definition and class_definition are not included.
var declarationKinds = map[string]bool{
	"function_declaration":  true,
	"function":              true,
	"function_item":         true,
	"method_declaration":    true,
	"method_definition":     true,
	"class_declaration":     true,
	"class":                 true,
	"interface_declaration": true,
	"enum_declaration":      true,
	"enum_item":             true,
	"struct_item":           true,
	"trait_item":            true,
	"mod_item":              true,
	"type_spec":             true,
	"var_spec":              true,
	"const_spec":            true,
}

// File is a parsed single-file analysis session: the tree and the
// source bytes it was parsed from.
type File struct {
	tree   *sitter.Tree
	source []byte
}

// Parse parses source under language_id and returns a File ready for
// navigation. The caller must call Close when done.
func Parse(ctx context.Context, source []byte, languageID string) (*File, error) {
	grammar, ok := grammars[strings.ToLower(languageID)]
	if !ok {
		return nil, &symbol.UnsupportedLanguageError{LanguageID: languageID}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &symbol.ParseError{Message: "parse failed", Cause: err}
	}
	return &File{tree: tree, source: source}, nil
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() { f.tree.Close() }

// NodeRange exposes rangeOf for callers outside the package that hold
// a *sitter.Node returned by FindDeclaration.
func (f *File) NodeRange(node *sitter.Node) symbol.Range { return rangeOf(node) }

func (f *File) text(node *sitter.Node) string {
	return string(f.source[node.StartByte():node.EndByte()])
}

// IdentifierAtPosition descends to the smallest node whose range
// contains pos. If that node is identifier-class, its text is
// returned; otherwise its immediate children are searched for the
// first identifier-class node. Empty text yields ("", false).
func (f *File) IdentifierAtPosition(pos symbol.Position) (string, bool) {
	node := smallestContaining(f.tree.RootNode(), pos)
	if node == nil {
		return "", false
	}

	if identifierKinds[node.Type()] {
		if text := f.text(node); text != "" {
			return text, true
		}
		return "", false
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child != nil && identifierKinds[child.Type()] {
			if text := f.text(child); text != "" {
				return text, true
			}
		}
	}
	return "", false
}

// smallestContaining returns the deepest node in node's subtree whose
// range contains pos.
func smallestContaining(node *sitter.Node, pos symbol.Position) *sitter.Node {
	if node == nil || !rangeOf(node).Contains(pos) {
		return nil
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := smallestContaining(child, pos); found != nil {
			return found
		}
	}
	return node
}

// FindDeclaration depth-first searches for the first node whose kind
// is a recognized declaration kind and that has a named child
// identifier equal to name.
func (f *File) FindDeclaration(name string) (*sitter.Node, bool) {
	return f.findDeclaration(f.tree.RootNode(), name)
}

func (f *File) findDeclaration(node *sitter.Node, name string) (*sitter.Node, bool) {
	if node == nil {
		return nil, false
	}

	if declarationKinds[node.Type()] && f.hasNamedIdentifier(node, name) {
		return node, true
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		if found, ok := f.findDeclaration(node.Child(i), name); ok {
			return found, true
		}
	}
	return nil, false
}

func (f *File) hasNamedIdentifier(node *sitter.Node, name string) bool {
	if nameField := node.ChildByFieldName("name"); nameField != nil {
		return f.text(nameField) == name
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child != nil && identifierKinds[child.Type()] && f.text(child) == name {
			return true
		}
	}
	return false
}

// FindReferences depth-first collects the range of every
// identifier-class node whose text equals name.
func (f *File) FindReferences(name string) []symbol.Range {
	var out []symbol.Range
	f.walkReferences(f.tree.RootNode(), name, &out)
	return out
}

func (f *File) walkReferences(node *sitter.Node, name string, out *[]symbol.Range) {
	if node == nil {
		return
	}
	if identifierKinds[node.Type()] && f.text(node) == name {
		*out = append(*out, rangeOf(node))
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		f.walkReferences(node.Child(i), name, out)
	}
}

// GraphNode is one declaration in a same-file call graph.
type GraphNode struct {
	ID   string
	Name string
	Kind string
}

// GraphEdge is a naive same-file "calls" relation from an enclosing
// declaration to a callee name.
type GraphEdge struct {
	From     string
	To       string
	Relation string
}

// AnalyzeGraph builds a same-file call graph: a first pass collects
// every declaration as a node id "path::name", a second pass descends
// each declaration's body (without crossing into nested declarations)
// and emits a "calls" edge for every call_expression/new_expression,
// resolved naively within this file.
func (f *File) AnalyzeGraph(path string) ([]GraphNode, []GraphEdge) {
	var nodes []GraphNode
	var edges []GraphEdge

	f.collectDeclarations(f.tree.RootNode(), path, &nodes)
	for _, n := range nodes {
		declNode, ok := f.findDeclaration(f.tree.RootNode(), n.Name)
		if !ok {
			continue
		}
		f.collectCalls(declNode, path, n.ID, &edges)
	}
	return nodes, edges
}

func (f *File) collectDeclarations(node *sitter.Node, path string, nodes *[]GraphNode) {
	if node == nil {
		return
	}
	if declarationKinds[node.Type()] {
		if nameField := node.ChildByFieldName("name"); nameField != nil {
			name := f.text(nameField)
			*nodes = append(*nodes, GraphNode{ID: path + "::" + name, Name: name, Kind: node.Type()})
		}
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		f.collectDeclarations(node.Child(i), path, nodes)
	}
}

// collectCalls descends declNode's body, stopping at nested
// declarations, emitting a "calls" edge for every call/new expression.
func (f *File) collectCalls(declNode *sitter.Node, path, fromID string, edges *[]GraphEdge) {
	body := declNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	f.walkCalls(body, path, fromID, edges)
}

func (f *File) walkCalls(node *sitter.Node, path, fromID string, edges *[]GraphEdge) {
	if node == nil {
		return
	}
	if declarationKinds[node.Type()] {
		return // do not cross into nested declarations
	}

	switch node.Type() {
	case "call_expression", "new_expression":
		if callee, ok := f.calleeOf(node); ok {
			*edges = append(*edges, GraphEdge{From: fromID, To: path + "::" + callee, Relation: "calls"})
		}
	}

	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		f.walkCalls(node.Child(i), path, fromID, edges)
	}
}

// calleeOf extracts a call expression's callee name: the first child
// if it is an identifier, or the "property" field of a
// member_expression.
func (f *File) calleeOf(node *sitter.Node) (string, bool) {
	first := node.Child(0)
	if first == nil {
		return "", false
	}
	if identifierKinds[first.Type()] {
		return f.text(first), true
	}
	if first.Type() == "member_expression" {
		if prop := first.ChildByFieldName("property"); prop != nil {
			return f.text(prop), true
		}
	}
	return "", false
}

func rangeOf(node *sitter.Node) symbol.Range {
	start := node.StartPoint()
	end := node.EndPoint()
	return symbol.Range{
		Start: symbol.Position{Line: int(start.Row), Column: int(start.Column)},
		End:   symbol.Position{Line: int(end.Row), Column: int(end.Column)},
	}
}
