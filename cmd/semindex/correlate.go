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
	correlateCommitID   string
	correlatePreviousID string
)

var correlateCmd = &cobra.Command{
	Use:   "correlate <test-name> <failure-message>",
	Short: "Rank recently changed files by relevance to a CI failure",
	Args:  cobra.ExactArgs(2),
	RunE:  runCorrelate,
}

func init() {
	correlateCmd.Flags().StringVar(&correlateCommitID, "commit", "", "commit id the failure was observed at (default: HEAD)")
	correlateCmd.Flags().StringVar(&correlatePreviousID, "since", "", "previous known-good commit id to diff against")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	testName, failureMessage := args[0], args[1]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	idx, err := a.openTemporalIndex()
	if err != nil {
		return err
	}

	commitID := correlateCommitID
	if commitID == "" {
		commitID, err = idx.Head()
		if err != nil {
			return err
		}
	}

	suspects, err := idx.CorrelateCIFailure(ctx, testName, failureMessage, commitID, correlatePreviousID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range suspects {
		fmt.Fprintf(out, "%.2f\t%s\t%s\t%s\n", s.RelevanceScore, s.ChangeType, s.Path, s.Reason)
	}
	return nil
}
