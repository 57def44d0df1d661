// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchTopK       int
	searchPathPrefix string
	searchCommitID   string
	searchSymbols    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents or symbols by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 10, "number of results to return")
	searchCmd.Flags().StringVar(&searchPathPrefix, "path-prefix", "", "restrict results to paths with this prefix")
	searchCmd.Flags().StringVar(&searchCommitID, "commit", "", "restrict results to this commit id")
	searchCmd.Flags().BoolVar(&searchSymbols, "symbols", false, "search symbols instead of whole documents")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	if searchSymbols {
		matches, err := a.store.SearchSymbols(ctx, query, searchTopK, searchPathPrefix, searchCommitID)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintf(out, "%.4f\t%s\t%s\t%s\n", m.Score, m.Symbol.Kind, m.Symbol.Name, m.Symbol.Path)
		}
		return nil
	}

	matches, err := a.store.SearchDocuments(ctx, query, searchTopK, searchPathPrefix, searchCommitID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%.4f\t%s\n", m.Score, m.Document.Path)
	}
	return nil
}
