// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var blameCmd = &cobra.Command{
	Use:   "blame <path>",
	Short: "Show the last author to touch each line of a file at HEAD",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlame,
}

func runBlame(cmd *cobra.Command, args []string) error {
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

	lines, err := idx.Blame(path)
	if err != nil {
		return err
	}

	lineNumbers := make([]int, 0, len(lines))
	for n := range lines {
		lineNumbers = append(lineNumbers, n)
	}
	sort.Ints(lineNumbers)

	out := cmd.OutOrStdout()
	for _, n := range lineNumbers {
		fmt.Fprintf(out, "%4d  %s\n", n+1, lines[n])
	}
	return nil
}
