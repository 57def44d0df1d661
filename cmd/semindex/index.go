// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JudgeZ/semindex/internal/symbol"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents and symbols under path (default: the configured repo root)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	root := a.cfg.GitRepoPath
	if len(args) == 1 {
		root = args[0]
	}

	temporalIdx, err := a.openTemporalIndex()
	if err != nil {
		return err
	}
	commitID, err := temporalIdx.Head()
	if err != nil {
		return err
	}

	var indexedFiles, indexedSymbols int
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			a.logger.Warn("index: skipping unreadable file", "path", path, "error", readErr)
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}

		if _, err := a.store.IndexDocument(ctx, relPath, string(content), commitID); err != nil {
			a.logger.Warn("index: document indexing failed", "path", relPath, "error", err)
			return nil
		}
		indexedFiles++

		language, ok := symbol.LanguageForPath(relPath)
		if !ok {
			return nil
		}

		n, symErr := a.store.IndexSymbols(ctx, a.registry, relPath, string(content), language, commitID)
		if symErr != nil {
			a.logger.Warn("index: symbol indexing failed", "path", relPath, "error", symErr)
			return nil
		}
		indexedSymbols += n
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("semindex: walk %s: %w", root, walkErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents, %d symbols at commit %s\n", indexedFiles, indexedSymbols, commitID)
	return nil
}
