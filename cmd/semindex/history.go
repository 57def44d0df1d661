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

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show the recorded change history for a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	idx, err := a.openTemporalIndex()
	if err != nil {
		return err
	}

	head, err := idx.Head()
	if err != nil {
		return err
	}
	if _, err := idx.IndexCommitRange(ctx, "", head); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, v := range idx.GetHistory(path) {
		if v.ChangeType.String() == "renamed" {
			fmt.Fprintf(out, "%s\t%s\t%s (from %s)\t%s\n", v.CommitID, v.ChangeType, path, v.PreviousPath, v.CommitMessage)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", v.CommitID, v.ChangeType, v.Author, v.CommitMessage)
	}
	return nil
}
