// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package symbol

import (
	"fmt"

	"github.com/JudgeZ/semindex/internal/apperr"
)

// UnsupportedLanguageError wraps apperr.ErrUnsupportedLanguage with the
// language_id the caller asked for.
type UnsupportedLanguageError struct {
	LanguageID string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("symbol: unsupported language %q", e.LanguageID)
}

func (e *UnsupportedLanguageError) Unwrap() error { return apperr.ErrUnsupportedLanguage }

// ParseError wraps apperr.ErrParse with the file, a message, and the
// underlying cause; errors.Is matches both apperr.ErrParse and Cause.
type ParseError struct {
	FilePath string
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("symbol: %s: %s", e.FilePath, e.Message)
	}
	return fmt.Sprintf("symbol: %s", e.Message)
}

func (e *ParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{apperr.ErrParse, e.Cause}
	}
	return []error{apperr.ErrParse}
}
