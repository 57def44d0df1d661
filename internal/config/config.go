// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package config loads and validates application configuration from a
// file, environment variables, and defaults, using viper for sourcing
// and go-playground/validator for the resulting struct.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "SEMINDEX"

// Accepted values of Config.EmbeddingProvider, which select the
// embedding backend the CLI builds.
const (
	EmbeddingProviderLocal  = "local"
	EmbeddingProviderRemote = "remote"
	EmbeddingProviderAuto   = "auto"
)

// Config is the fully resolved, validated application configuration.
type Config struct {
	StorageURL      string `mapstructure:"storage_url" validate:"required"`
	StorageMaxConns int    `mapstructure:"storage_max_conns" validate:"required,min=1"`

	GitRepoPath         string `mapstructure:"git_repo_path" validate:"required"`
	CommitBatchSize     int    `mapstructure:"commit_batch_size" validate:"required,min=1"`
	MaxCommitAgeDays    int    `mapstructure:"max_commit_age_days" validate:"min=0"`
	IncludeMergeCommits bool   `mapstructure:"include_merge_commits"`

	EmbeddingProvider  string `mapstructure:"embedding_provider" validate:"required,oneof=local remote auto"`
	RemoteEmbeddingURL string `mapstructure:"remote_embedding_url" validate:"required_if=EmbeddingProvider remote"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension" validate:"required,eq=384"`
}

var validate = validator.New()

// Load reads configuration from path (if non-empty), environment
// variables prefixed SEMINDEX_, and built-in defaults, then validates
// the result. An empty path looks for a file named semindex (any
// extension viper supports) in the current directory only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("semindex")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_max_conns", 5)
	v.SetDefault("git_repo_path", ".")
	v.SetDefault("commit_batch_size", 100)
	v.SetDefault("max_commit_age_days", 90)
	v.SetDefault("include_merge_commits", false)
	v.SetDefault("embedding_provider", EmbeddingProviderAuto)
	v.SetDefault("embedding_dimension", 384)
}
