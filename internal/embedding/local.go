// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// ModelRunner is the hook a real transformer runtime plugs into
// LocalProvider. The actual model is an external collaborator (spec
// §1 non-goal); LocalProvider only owns serialising access to it.
type ModelRunner interface {
	Run(text string) ([]float32, error)
}

// LocalProvider serialises calls into a long-lived, non-reentrant
// model runner — a single-process, mutex-guarded
// inference pattern rather than spinning up a pool per call.
type LocalProvider struct {
	mu     sync.Mutex
	runner ModelRunner
}

// NewLocalProvider wraps runner for exclusive access.
func NewLocalProvider(runner ModelRunner) *LocalProvider {
	return &LocalProvider{runner: runner}
}

func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, err := p.runner.Run(text)
	if err != nil {
		return nil, &ProviderError{Provider: "local", Cause: err}
	}
	if len(vec) != Dimension {
		return nil, &DimensionMismatchError{Provider: "local", Got: len(vec), Want: Dimension}
	}
	return vec, nil
}

// StubRunner is a deterministic ModelRunner for environments without a
// real transformer loaded: development, and tests that exercise the
// Gateway's normalisation/zero-vector behaviour rather than model
// quality. It derives a reproducible pseudo-embedding from an FNV
// hash of the text, seeding per-dimension pseudo-random floats.
type StubRunner struct{}

func (StubRunner) Run(text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, Dimension)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>11)) / float32(1<<52)
	}
	return vec, nil
}
