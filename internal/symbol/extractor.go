// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package symbol

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// shapeRule describes how one recognized CST node type becomes an
// ExtractedSymbol: its SymbolKind (possibly refined by inspecting the
// node once matched), and which named field holds its nested body for
// child collection ("body" unless overridden).
type shapeRule struct {
	kind          SymbolKind
	refine        func(node *sitter.Node) SymbolKind
	childrenField string
}

func (r shapeRule) bodyField() string {
	if r.childrenField != "" {
		return r.childrenField
	}
	return "body"
}

// shapeTable maps a CST node type to the rule that recognizes it for
// one grammar. A type absent from the table is not an error: the
// walker simply recurses into that node's children.
type shapeTable map[string]shapeRule

// languages pairs each language_id with its grammar and the shape
// table that recognizes its declarative node kinds. The
// same logical node kind may appear under different literal node type
// strings across grammars (e.g. a bare function expression is
// "function" in JavaScript, "function_item" in Rust).
var languages = map[string]struct {
	grammar func() *sitter.Language
	shapes  shapeTable
}{
	"go": {
		grammar: golang.GetLanguage,
		shapes: shapeTable{
			"function_declaration": {kind: SymbolKindFunction},
			"method_declaration":   {kind: SymbolKindMethod},
			"var_spec":             {kind: SymbolKindVariable},
			"const_spec":           {kind: SymbolKindConstant},
			"field_declaration":    {kind: SymbolKindProperty},
			"method_elem":          {kind: SymbolKindMethod},
			"type_spec":            {kind: SymbolKindType, refine: refineGoTypeSpec, childrenField: "type"},
		},
	},
	"javascript": {
		grammar: javascript.GetLanguage,
		shapes: shapeTable{
			"function_declaration": {kind: SymbolKindFunction},
			"function":             {kind: SymbolKindFunction},
			"class_declaration":    {kind: SymbolKindClass},
			"class":                {kind: SymbolKindClass},
			"method_definition":    {kind: SymbolKindMethod},
			"field_definition":     {kind: SymbolKindProperty},
			"variable_declarator":  {kind: SymbolKindConstant},
		},
	},
	"typescript": {
		grammar: typescript.GetLanguage,
		shapes: shapeTable{
			"function_declaration":    {kind: SymbolKindFunction},
			"function":                {kind: SymbolKindFunction},
			"class_declaration":       {kind: SymbolKindClass},
			"class":                   {kind: SymbolKindClass},
			"interface_declaration":   {kind: SymbolKindInterface},
			"enum_declaration":        {kind: SymbolKindEnum},
			"method_definition":       {kind: SymbolKindMethod},
			"field_definition":        {kind: SymbolKindProperty},
			"public_field_definition": {kind: SymbolKindProperty},
			"variable_declarator":     {kind: SymbolKindConstant},
		},
	},
	"python": {
		grammar: python.GetLanguage,
		shapes: shapeTable{
			"function_definition": {kind: SymbolKindFunction},
			"class_definition":    {kind: SymbolKindClass},
		},
	},
	"rust": {
		grammar: rust.GetLanguage,
		shapes: shapeTable{
			"function_item": {kind: SymbolKindFunction},
			"struct_item":   {kind: SymbolKindStruct},
			"trait_item":    {kind: SymbolKindTrait},
			"enum_item":     {kind: SymbolKindEnum},
			"impl_item":     {kind: SymbolKindImpl},
			"mod_item":      {kind: SymbolKindModule},
		},
	},
}

// extensionLanguages maps a lowercase file extension (without the dot)
// to the language_id Extract expects.
var extensionLanguages = map[string]string{
	"go":   "go",
	"js":   "javascript",
	"jsx":  "javascript",
	"mjs":  "javascript",
	"ts":   "typescript",
	"tsx":  "typescript",
	"py":   "python",
	"rs":   "rust",
}

// LanguageForPath derives a language_id from path's extension, for
// callers that only have a file path and need to pick a grammar. The
// second return is false when the extension is unknown.
func LanguageForPath(path string) (string, bool) {
	ext := path
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		ext = path[idx+1:]
	} else {
		return "", false
	}
	lang, ok := extensionLanguages[strings.ToLower(ext)]
	return lang, ok
}

// refineGoTypeSpec distinguishes Go's three type_spec shapes: a
// struct_type or interface_type underlying type is reported as
// Struct/Interface; anything else (aliases, named scalar types) is a
// plain Type.
func refineGoTypeSpec(node *sitter.Node) SymbolKind {
	underlying := node.ChildByFieldName("type")
	if underlying == nil {
		return SymbolKindType
	}
	switch underlying.Type() {
	case "struct_type":
		return SymbolKindStruct
	case "interface_type":
		return SymbolKindInterface
	default:
		return SymbolKindType
	}
}

// Extractor walks a language's CST and produces a nested tree of
// ExtractedSymbol. It holds no mutable state and is safe for
// concurrent use; each Extract call creates its own tree-sitter
// parser rather than sharing one across calls.
type Extractor struct{}

// NewExtractor returns a ready-to-use Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract parses source under language_id and returns the top-level
// ExtractedSymbols. It returns an UnsupportedLanguageError for unknown
// language_ids and a ParseError if the grammar cannot be parsed.
func (e *Extractor) Extract(ctx context.Context, source []byte, languageID string) ([]*ExtractedSymbol, error) {
	lang, ok := languages[strings.ToLower(languageID)]
	if !ok {
		return nil, &UnsupportedLanguageError{LanguageID: languageID}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Message: "parse failed", Cause: err}
	}
	defer tree.Close()

	w := &walker{shapes: lang.shapes, source: source}
	return w.walk(tree.RootNode()), nil
}

// walker carries the per-call state needed to decompose one tree: the
// language's shape table and the original source bytes (node ranges
// index into this slice).
type walker struct {
	shapes shapeTable
	source []byte
}

// walk implements the preorder traversal: at each node it
// attempts to recognize a declarative shape by node kind. A match
// yields one ExtractedSymbol and the walker descends only into that
// rule's body field to collect children — it never recurses into the
// matched node's siblings within this call. A non-match continues the
// walk into the node's own children.
func (w *walker) walk(node *sitter.Node) []*ExtractedSymbol {
	if node == nil {
		return nil
	}

	var out []*ExtractedSymbol
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if rule, ok := w.shapes[child.Type()]; ok {
			if sym := w.buildSymbol(child, rule); sym != nil {
				out = append(out, sym)
			}
			continue
		}
		out = append(out, w.walk(child)...)
	}
	return out
}

// buildSymbol constructs an ExtractedSymbol for a node whose type
// matched a shape rule. Returns nil when the expected name field is
// missing — a silent drop, for
// unrecognized fields on an otherwise matched node (e.g. an anonymous
// embedded struct field).
func (w *walker) buildSymbol(node *sitter.Node, rule shapeRule) *ExtractedSymbol {
	kind := rule.kind
	if rule.refine != nil {
		kind = rule.refine(node)
	}

	name := w.nameOf(node, kind)
	if name == "" {
		return nil
	}

	var children []*ExtractedSymbol
	if body := node.ChildByFieldName(rule.bodyField()); body != nil {
		children = w.walk(body)
	}

	return &ExtractedSymbol{
		Name:       name,
		Kind:       kind,
		Range:      rangeOf(node),
		Content:    w.text(node),
		DocComment: w.docCommentFor(node),
		Children:   children,
	}
}

// nameOf extracts the declaration's name. impl_item has no "name"
// field; its identity is synthesized from the implemented type's text,
// for impl_item, which has no name field of its own.
func (w *walker) nameOf(node *sitter.Node, kind SymbolKind) string {
	if kind == SymbolKindImpl {
		if typeField := node.ChildByFieldName("type"); typeField != nil {
			return "impl " + w.text(typeField)
		}
		return ""
	}
	if nameField := node.ChildByFieldName("name"); nameField != nil {
		return w.text(nameField)
	}
	return ""
}

// docCommentFor attaches a node's doc comment. Most declarations carry
// their own preceding comment block; declarators nested one level
// inside a wrapping declaration (Go's var_spec/const_spec, JavaScript's
// variable_declarator) have no comment of their own, so the comment is
// borrowed from the enclosing declaration node instead.
func (w *walker) docCommentFor(node *sitter.Node) string {
	if doc := w.docComment(node); doc != "" {
		return doc
	}
	if parent := node.Parent(); parent != nil {
		return w.docComment(parent)
	}
	return ""
}

// docComment walks previous siblings of node, collecting contiguous
// comment nodes (comment, or Rust's line_comment/block_comment) whose
// text begins with "/**" or "///", stopping at the first sibling that
// is not such a comment. The collected block is reversed so
// textual order is preserved.
func (w *walker) docComment(node *sitter.Node) string {
	var lines []string
	sibling := node.PrevSibling()
	for sibling != nil {
		if t := sibling.Type(); t != "comment" && t != "line_comment" && t != "block_comment" {
			break
		}
		text := strings.TrimSpace(w.text(sibling))
		if !strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "///") {
			break
		}
		lines = append(lines, text)
		sibling = sibling.PrevSibling()
	}
	if len(lines) == 0 {
		return ""
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

func (w *walker) text(node *sitter.Node) string {
	return string(w.source[node.StartByte():node.EndByte()])
}

func rangeOf(node *sitter.Node) Range {
	start := node.StartPoint()
	end := node.EndPoint()
	return Range{
		Start: Position{Line: int(start.Row), Column: int(start.Column)},
		End:   Position{Line: int(end.Row), Column: int(end.Column)},
	}
}
