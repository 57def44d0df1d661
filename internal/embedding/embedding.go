// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package embedding implements the Embedding Gateway: a capability
// interface over embedding providers that always returns a fixed
// dimension, L2-normalised vector.
package embedding

import (
	"context"
	"math"
	"strings"
)

// Dimension is the fixed vector length every provider must return,
// matching the default transformer model ("all-MiniLM-L6-v2").
const Dimension = 384

// Provider is the capability interface both providers satisfy. No
// provider-specific fields leak past this boundary.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Gateway embeds text via its configured Provider, short-circuiting
// empty/whitespace input to the zero vector without contacting it.
type Gateway struct {
	provider Provider
}

// NewGateway wraps provider behind the Gateway's empty-text and
// normalisation handling.
func NewGateway(provider Provider) *Gateway {
	return &Gateway{provider: provider}
}

// Embed returns a length-Dimension, L2-normalised vector for text, or
// the zero vector if text is empty or all whitespace.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, Dimension), nil
	}

	vec, err := g.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return normalize(vec), nil
}

// normalize returns the L2-normalised copy of vec; a zero vector stays zero.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
