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

	"github.com/spf13/cobra"

	"github.com/JudgeZ/semindex/internal/analysis"
	"github.com/JudgeZ/semindex/internal/apperr"
	"github.com/JudgeZ/semindex/internal/symbol"
)

var graphCmd = &cobra.Command{
	Use:   "graph <path>",
	Short: "Print the same-file declaration and call graph for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	path := args[0]

	language, ok := symbol.LanguageForPath(path)
	if !ok {
		return fmt.Errorf("semindex: %w: %s", apperr.ErrUnsupportedLanguage, path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("semindex: read %s: %w", path, err)
	}

	file, err := analysis.Parse(cmd.Context(), source, language)
	if err != nil {
		return err
	}
	defer file.Close()

	nodes, edges := file.AnalyzeGraph(path)

	out := cmd.OutOrStdout()
	for _, n := range nodes {
		fmt.Fprintf(out, "node\t%s\t%s\n", n.ID, n.Kind)
	}
	for _, e := range edges {
		fmt.Fprintf(out, "edge\t%s\t%s\t%s\n", e.From, e.To, e.Relation)
	}
	return nil
}
