// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package storage

import "time"

// StoredDocument is one row of the documents table: whole-file content
// and its embedding, upserted by path.
type StoredDocument struct {
	ID        string
	Path      string
	Content   string
	CommitID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredSymbol is one row of the symbols table. Metadata carries the
// doc comment under "doc_comment"; rows written by Store record no
// language. For file-at-commit synthetic rows Kind is the literal
// string "File".
type StoredSymbol struct {
	ID        string
	Path      string
	Name      string
	Kind      string
	Content   string
	CommitID  string
	StartLine int
	EndLine   int
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentMatch pairs a StoredDocument with its similarity score.
type DocumentMatch struct {
	Document StoredDocument
	Score    float32
}

// SymbolMatch pairs a StoredSymbol with its similarity score.
type SymbolMatch struct {
	Symbol StoredSymbol
	Score  float32
}
