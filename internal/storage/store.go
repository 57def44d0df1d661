// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package storage implements the storage layer: Postgres + pgvector
// persistence for whole-file documents and extracted symbols, fronted
// by a circuit-breaking connection pool wrapper.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/JudgeZ/semindex/internal/apperr"
	"github.com/JudgeZ/semindex/internal/embedding"
	"github.com/JudgeZ/semindex/internal/logging"
	"github.com/JudgeZ/semindex/internal/registry"
	"github.com/JudgeZ/semindex/internal/symbol"
)

// embeddingModel labels every row this process writes.
const embeddingModel = "all-MiniLM-L6-v2"

// batchEmbedConcurrency bounds in-flight embedding calls within one
// IndexSymbols batch.
const batchEmbedConcurrency = 4

// Store is the storage layer: the documents/symbols tables plus the
// indexing and search operations. It also implements registry.Store so
// a registry.Registry can hydrate from and persist through it directly.
type Store struct {
	pool      *ResilientPool
	embedder  *embedding.Gateway
	extractor *symbol.Extractor
	logger    *logging.Logger
}

// New opens a pgxpool.Pool against url and wraps it in the resilience layer.
func New(ctx context.Context, url string, maxConns int32, embedder *embedding.Gateway, logger *logging.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("storage: parse config: %w", apperr.ErrBackend)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", apperr.ErrBackend)
	}

	resilient, err := NewResilientPool(pool, DefaultPoolConfig(), logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool:      resilient,
		embedder:  embedder,
		extractor: symbol.NewExtractor(),
		logger:    logger,
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// Migrate creates the pgvector extension and the documents/symbols
// tables if they do not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
  id                     UUID PRIMARY KEY,
  path                   TEXT NOT NULL UNIQUE,
  content                TEXT NOT NULL,
  embedding_vector       vector(%[1]d),
  commit_id              TEXT,
  embedding_model        TEXT,
  embedding_generated_at TIMESTAMPTZ,
  created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS documents_embedding_idx
  ON documents USING ivfflat (embedding_vector vector_l2_ops) WITH (lists = 100);

CREATE TABLE IF NOT EXISTS symbols (
  id                     UUID PRIMARY KEY,
  path                   TEXT NOT NULL,
  name                   TEXT NOT NULL,
  kind                   TEXT NOT NULL,
  content                TEXT NOT NULL,
  embedding_vector       vector(%[1]d),
  commit_id              TEXT,
  start_line             INT NOT NULL DEFAULT 0,
  end_line               INT NOT NULL DEFAULT 0,
  metadata               JSONB,
  embedding_model        TEXT,
  embedding_generated_at TIMESTAMPTZ,
  created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS symbols_path_idx ON symbols (path);
CREATE INDEX IF NOT EXISTS symbols_embedding_idx
  ON symbols USING ivfflat (embedding_vector vector_l2_ops) WITH (lists = 100);
`, embedding.Dimension)

	return s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		_, err := pool.Exec(ctx, q)
		return err
	})
}

// IndexDocument embeds content and upserts it by path, replacing
// content/embedding/commit_id and advancing updated_at on conflict.
func (s *Store) IndexDocument(ctx context.Context, path, content, commitID string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	if err := ValidateCommitID(commitID); err != nil {
		return "", err
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	const q = `
INSERT INTO documents (id, path, content, embedding_vector, commit_id, embedding_model, embedding_generated_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, now(), now(), now())
ON CONFLICT (path) DO UPDATE SET
  content                = EXCLUDED.content,
  embedding_vector        = EXCLUDED.embedding_vector,
  commit_id               = EXCLUDED.commit_id,
  embedding_model         = EXCLUDED.embedding_model,
  embedding_generated_at  = EXCLUDED.embedding_generated_at,
  updated_at              = now()
RETURNING id;
`
	var returnedID string
	err = s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		return pool.QueryRow(ctx, q, id, path, content, pgvector.NewVector(vec), commitID, embeddingModel).Scan(&returnedID)
	})
	if err != nil {
		return "", err
	}
	return returnedID, nil
}

// flatSymbol is one preorder-flattened extraction candidate.
type flatSymbol struct {
	key     symbol.SymbolKey
	content string
	rng     symbol.Range
	doc     string
}

func flatten(path string, symbols []*symbol.ExtractedSymbol) []flatSymbol {
	var out []flatSymbol
	var walk func([]*symbol.ExtractedSymbol)
	walk = func(nodes []*symbol.ExtractedSymbol) {
		for _, n := range nodes {
			out = append(out, flatSymbol{
				key:     symbol.SymbolKey{Path: path, Name: n.Name, Kind: n.Kind},
				content: n.Content,
				rng:     n.Range,
				doc:     n.DocComment,
			})
			walk(n.Children)
		}
	}
	walk(symbols)
	return out
}

// IndexSymbols extracts path's symbols, mints/updates each through
// reg, embeds all candidates with at most batchEmbedConcurrency
// in flight, and writes each row's embedding. A failure in any
// embedding aborts the batch and surfaces the first error; rows
// already written remain.
func (s *Store) IndexSymbols(ctx context.Context, reg *registry.Registry, path, content, language, commitID string) (int, error) {
	if err := ValidatePath(path); err != nil {
		return 0, err
	}
	if err := ValidateCommitID(commitID); err != nil {
		return 0, err
	}

	extracted, err := s.extractor.Extract(ctx, []byte(content), language)
	if err != nil {
		return 0, err
	}
	candidates := flatten(path, extracted)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(batchEmbedConcurrency)

	counts := make([]int, len(candidates))
	for i, cand := range candidates {
		i, cand := i, cand
		group.Go(func() error {
			id, err := reg.GetOrCreate(gctx, cand.key)
			if err != nil {
				return err
			}
			if err := reg.Update(gctx, id, cand.content, cand.rng, cand.doc, commitID); err != nil {
				return err
			}

			vec, err := s.embedder.Embed(gctx, cand.content)
			if err != nil {
				return err
			}
			if err := s.setSymbolEmbedding(gctx, id, cand.key, cand.rng, vec); err != nil {
				return err
			}
			counts[i] = 1
			return nil
		})
	}

	waitErr := group.Wait()
	persisted := 0
	for _, c := range counts {
		persisted += c
	}
	return persisted, waitErr
}

func (s *Store) setSymbolEmbedding(ctx context.Context, id string, key symbol.SymbolKey, rng symbol.Range, vec []float32) error {
	const q = `
INSERT INTO symbols (id, path, name, kind, content, embedding_vector, start_line, end_line, embedding_model, embedding_generated_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, '', $5, $6, $7, $8, now(), now(), now())
ON CONFLICT (id) DO UPDATE SET
  embedding_vector       = EXCLUDED.embedding_vector,
  embedding_model        = EXCLUDED.embedding_model,
  embedding_generated_at = EXCLUDED.embedding_generated_at,
  updated_at             = now();
`
	return s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		_, err := pool.Exec(ctx, q, id, key.Path, key.Name, key.Kind.String(), pgvector.NewVector(vec), rng.Start.Line, rng.End.Line, embeddingModel)
		return err
	})
}

// SearchDocuments embeds query and returns the top_k nearest documents,
// optionally filtered by path prefix and commit id.
func (s *Store) SearchDocuments(ctx context.Context, query string, topK int, pathPrefix, commitID string) ([]DocumentMatch, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := ValidateCommitID(commitID); err != nil {
		return nil, err
	}
	topK = ClampTopK(topK)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT id, path, content, COALESCE(commit_id, ''), created_at, updated_at,
       1 - (embedding_vector <-> $1) AS score
FROM documents
WHERE ($2 = '' OR path LIKE $2 || '%')
  AND ($3 = '' OR commit_id = $3)
ORDER BY embedding_vector <-> $1 ASC
LIMIT $4;
`
	var out []DocumentMatch
	err = s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		rows, err := pool.Query(ctx, q, pgvector.NewVector(vec), pathPrefix, commitID, topK)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = nil
		for rows.Next() {
			var m DocumentMatch
			if err := rows.Scan(&m.Document.ID, &m.Document.Path, &m.Document.Content, &m.Document.CommitID,
				&m.Document.CreatedAt, &m.Document.UpdatedAt, &m.Score); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchSymbols embeds query and returns the top_k nearest symbols,
// analogous to SearchDocuments.
func (s *Store) SearchSymbols(ctx context.Context, query string, topK int, pathPrefix, commitID string) ([]SymbolMatch, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := ValidateCommitID(commitID); err != nil {
		return nil, err
	}
	topK = ClampTopK(topK)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	const q = `
SELECT id, path, name, kind, content, COALESCE(commit_id, ''), start_line, end_line,
       COALESCE(metadata::text, '{}'), created_at, updated_at,
       1 - (embedding_vector <-> $1) AS score
FROM symbols
WHERE ($2 = '' OR path LIKE $2 || '%')
  AND ($3 = '' OR commit_id = $3)
ORDER BY embedding_vector <-> $1 ASC
LIMIT $4;
`
	var out []SymbolMatch
	err = s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		rows, err := pool.Query(ctx, q, pgvector.NewVector(vec), pathPrefix, commitID, topK)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = nil
		for rows.Next() {
			var m SymbolMatch
			var metaJSON string
			if err := rows.Scan(&m.Symbol.ID, &m.Symbol.Path, &m.Symbol.Name, &m.Symbol.Kind, &m.Symbol.Content,
				&m.Symbol.CommitID, &m.Symbol.StartLine, &m.Symbol.EndLine, &metaJSON,
				&m.Symbol.CreatedAt, &m.Symbol.UpdatedAt, &m.Score); err != nil {
				return err
			}
			m.Symbol.Metadata = decodeMetadata(metaJSON)
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeMetadata(raw string) map[string]string {
	meta := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta
}

// QueryAllSymbols implements registry.Store, hydrating the Registry
// from every row of the symbols table.
func (s *Store) QueryAllSymbols(ctx context.Context) ([]registry.Symbol, error) {
	const q = `
SELECT id, path, name, kind, content, start_line, end_line,
       COALESCE(metadata->>'doc_comment', ''), COALESCE(commit_id, ''), created_at, updated_at
FROM symbols;
`
	var out []registry.Symbol
	err := s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		rows, err := pool.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = nil
		for rows.Next() {
			var sym registry.Symbol
			var kindStr string
			if err := rows.Scan(&sym.ID, &sym.Key.Path, &sym.Key.Name, &kindStr, &sym.Content,
				&sym.Location.Start.Line, &sym.Location.End.Line, &sym.DocComment, &sym.CommitID,
				&sym.CreatedAt, &sym.UpdatedAt); err != nil {
				return err
			}
			parsedKind, err := symbol.ParseSymbolKind(kindStr)
			if err != nil {
				continue // a row written under a retired kind name; skip rather than fail hydration
			}
			sym.Key.Kind = parsedKind
			out = append(out, sym)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("storage: query all symbols: %w", apperr.ErrBackend)
	}
	return out, nil
}

// StoreSymbol implements registry.Store, upserting the bijection
// fields of sym without touching its embedding columns.
func (s *Store) StoreSymbol(ctx context.Context, sym registry.Symbol) error {
	metaJSON, err := json.Marshal(map[string]string{"doc_comment": sym.DocComment})
	if err != nil {
		return fmt.Errorf("storage: marshal metadata: %w", apperr.ErrBackend)
	}

	const q = `
INSERT INTO symbols (id, path, name, kind, content, start_line, end_line, metadata, commit_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
ON CONFLICT (id) DO UPDATE SET
  content    = EXCLUDED.content,
  start_line = EXCLUDED.start_line,
  end_line   = EXCLUDED.end_line,
  metadata   = EXCLUDED.metadata,
  commit_id  = EXCLUDED.commit_id,
  updated_at = EXCLUDED.updated_at;
`
	return s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		_, err := pool.Exec(ctx, q, sym.ID, sym.Key.Path, sym.Key.Name, sym.Key.Kind.String(), sym.Content,
			sym.Location.Start.Line, sym.Location.End.Line, metaJSON, sym.CommitID, sym.CreatedAt, sym.UpdatedAt)
		return err
	})
}

// Ping checks connectivity through the resilience wrapper.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Execute(ctx, func(ctx context.Context, pool dbPool) error {
		return pool.Ping(ctx)
	})
}
