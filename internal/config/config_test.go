// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "storage_url: postgres://localhost/semindex\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.StorageMaxConns)
	assert.Equal(t, ".", cfg.GitRepoPath)
	assert.Equal(t, 100, cfg.CommitBatchSize)
	assert.Equal(t, 90, cfg.MaxCommitAgeDays)
	assert.False(t, cfg.IncludeMergeCommits)
	assert.Equal(t, EmbeddingProviderAuto, cfg.EmbeddingProvider)
	assert.Equal(t, 384, cfg.EmbeddingDimension)
}

func TestLoad_MissingStorageURLFailsValidation(t *testing.T) {
	path := writeConfigFile(t, "git_repo_path: .\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RemoteProviderRequiresURL(t *testing.T) {
	path := writeConfigFile(t, "storage_url: postgres://localhost/semindex\nembedding_provider: remote\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RemoteProviderWithURLSucceeds(t *testing.T) {
	path := writeConfigFile(t, "storage_url: postgres://localhost/semindex\nembedding_provider: remote\nremote_embedding_url: http://localhost:9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.RemoteEmbeddingURL)
}

func TestLoad_EnvironmentOverridesDefault(t *testing.T) {
	path := writeConfigFile(t, "storage_url: postgres://localhost/semindex\n")
	t.Setenv("SEMINDEX_STORAGE_MAX_CONNS", "20")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.StorageMaxConns)
}

func TestLoad_InvalidDimensionRejected(t *testing.T) {
	path := writeConfigFile(t, "storage_url: postgres://localhost/semindex\nembedding_dimension: 768\n")

	_, err := Load(path)
	assert.Error(t, err)
}
