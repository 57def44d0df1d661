// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package storage

import (
	"strings"

	"github.com/JudgeZ/semindex/internal/apperr"
)

const (
	maxPathLength  = 1024
	maxQueryLength = 4096

	defaultTopK = 5
	maxTopK     = 100
)

// ValidatePath rejects empty/whitespace paths, paths over 1024
// characters, and paths containing NUL/CR/LF.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperr.Invalid("path", "must not be empty or whitespace")
	}
	if len(path) > maxPathLength {
		return apperr.Invalid("path", "exceeds 1024 characters")
	}
	if strings.ContainsAny(path, "\x00\r\n") {
		return apperr.Invalid("path", "must not contain NUL, CR, or LF")
	}
	return nil
}

// ValidateCommitID accepts an absent (empty) commit id or an
// ASCII-hex string.
func ValidateCommitID(commitID string) error {
	if commitID == "" {
		return nil
	}
	for _, r := range commitID {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return apperr.Invalid("commit_id", "must be ASCII hex or absent")
		}
	}
	return nil
}

// ValidateQuery rejects blank queries and queries over 4096 characters.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return apperr.Invalid("query", "must not be blank")
	}
	if len(query) > maxQueryLength {
		return apperr.Invalid("query", "exceeds 4096 characters")
	}
	return nil
}

// ClampTopK maps a non-positive top_k to the default of 5 and caps
// anything above 100.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}
