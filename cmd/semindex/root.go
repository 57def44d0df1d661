// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JudgeZ/semindex/internal/config"
	"github.com/JudgeZ/semindex/internal/embedding"
	"github.com/JudgeZ/semindex/internal/logging"
	"github.com/JudgeZ/semindex/internal/registry"
	"github.com/JudgeZ/semindex/internal/storage"
	"github.com/JudgeZ/semindex/internal/temporal"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "semindex",
	Short:         "Code-aware semantic index over a git repository",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: ./semindex.yaml)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(blameCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(definitionsCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(graphCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// buildEmbeddingGateway picks a Provider for cfg.EmbeddingProvider:
// "local" always uses the in-process stub runner, "remote" always
// calls RemoteEmbeddingURL, "auto" prefers remote when a URL is
// configured and falls back to local otherwise.
func buildEmbeddingGateway(cfg *config.Config) *embedding.Gateway {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderRemote:
		return embedding.NewGateway(embedding.NewRemoteProvider(cfg.RemoteEmbeddingURL))
	case config.EmbeddingProviderLocal:
		return embedding.NewGateway(embedding.NewLocalProvider(embedding.StubRunner{}))
	default:
		if cfg.RemoteEmbeddingURL != "" {
			return embedding.NewGateway(embedding.NewRemoteProvider(cfg.RemoteEmbeddingURL))
		}
		return embedding.NewGateway(embedding.NewLocalProvider(embedding.StubRunner{}))
	}
}

// app bundles the storage layer and symbol registry every indexing or
// search subcommand needs; it is built once per invocation from
// loaded config.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	registry *registry.Registry
	logger   *logging.Logger
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("semindex: load config: %w", err)
	}

	logger := logging.New(logging.Config{Service: "semindex"})
	gateway := buildEmbeddingGateway(cfg)

	store, err := storage.New(ctx, cfg.StorageURL, int32(cfg.StorageMaxConns), gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("semindex: connect storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("semindex: migrate storage: %w", err)
	}

	reg, err := registry.New(ctx, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("semindex: hydrate registry: %w", err)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		registry: reg,
		logger:   logger,
	}, nil
}

func (a *app) close() { a.store.Close() }

func (a *app) openTemporalIndex() (*temporal.Index, error) {
	cfg := temporal.Config{
		CommitBatchSize:     a.cfg.CommitBatchSize,
		MaxCommitAgeDays:    a.cfg.MaxCommitAgeDays,
		IncludeMergeCommits: a.cfg.IncludeMergeCommits,
	}
	return temporal.Open(a.cfg.GitRepoPath, cfg, a.logger)
}
