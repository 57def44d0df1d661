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

var referencesCmd = &cobra.Command{
	Use:   "references <path> <name>",
	Short: "List every identifier occurrence of name within a single file",
	Args:  cobra.ExactArgs(2),
	RunE:  runReferences,
}

func runReferences(cmd *cobra.Command, args []string) error {
	path, name := args[0], args[1]

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

	out := cmd.OutOrStdout()
	for _, r := range file.FindReferences(name) {
		fmt.Fprintf(out, "%s:%d:%d-%d:%d\n", path, r.Start.Line+1, r.Start.Column+1, r.End.Line+1, r.End.Column+1)
	}
	return nil
}
