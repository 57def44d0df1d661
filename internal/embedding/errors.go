// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package embedding

import (
	"fmt"

	"github.com/JudgeZ/semindex/internal/apperr"
)

// ProviderError wraps apperr.ErrEmbedding with the provider kind and cause.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding: %s provider: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return apperr.ErrEmbedding }

// DimensionMismatchError reports a provider returning the wrong vector length.
type DimensionMismatchError struct {
	Provider string
	Got      int
	Want     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding: %s provider returned dimension %d, want %d", e.Provider, e.Got, e.Want)
}

func (e *DimensionMismatchError) Unwrap() error { return apperr.ErrEmbedding }
