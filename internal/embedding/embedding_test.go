// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestGateway_EmptyOrWhitespace_ReturnsZeroVectorWithoutProvider(t *testing.T) {
	gw := NewGateway(NewLocalProvider(failingRunner{t}))

	for _, text := range []string{"", "   ", "\t\n"} {
		vec, err := gw.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, Dimension)
		for _, v := range vec {
			assert.Zero(t, v)
		}
	}
}

type failingRunner struct{ t *testing.T }

func (f failingRunner) Run(string) ([]float32, error) {
	f.t.Fatal("provider should not be contacted for empty text")
	return nil, nil
}

func TestGateway_Local_ReturnsUnitVector(t *testing.T) {
	gw := NewGateway(NewLocalProvider(StubRunner{}))

	vec, err := gw.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	require.Len(t, vec, Dimension)
	assert.LessOrEqual(t, norm(vec), 1.0+1e-6)
}

func TestGateway_Local_Deterministic(t *testing.T) {
	gw := NewGateway(NewLocalProvider(StubRunner{}))

	v1, err := gw.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	v2, err := gw.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
}

func TestLocalProvider_DimensionMismatch(t *testing.T) {
	p := NewLocalProvider(fixedRunner{vec: make([]float32, 10)})
	_, err := p.Embed(context.Background(), "x")

	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
}

type fixedRunner struct{ vec []float32 }

func (f fixedRunner) Run(string) ([]float32, error) { return f.vec, nil }

func TestRemoteProvider_Success(t *testing.T) {
	vec := make([]float32, Dimension)
	vec[0] = 1.0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: vec})
	}))
	defer server.Close()

	p := NewRemoteProvider(server.URL)
	got, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestRemoteProvider_NonTwoXX(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewRemoteProvider(server.URL)
	_, err := p.Embed(context.Background(), "hello")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
}

func TestRemoteProvider_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1, 2, 3}})
	}))
	defer server.Close()

	p := NewRemoteProvider(server.URL)
	_, err := p.Embed(context.Background(), "hello")

	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestGateway_WrapsRemoteProvider_Normalized(t *testing.T) {
	vec := make([]float32, Dimension)
	vec[0] = 3
	vec[1] = 4 // norm = 5

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: vec})
	}))
	defer server.Close()

	gw := NewGateway(NewRemoteProvider(server.URL))
	got, err := gw.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)
	assert.LessOrEqual(t, norm(got), 1.0+1e-6)
}

func TestRemoteProvider_RequestBodyShape(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf strings.Builder
		_, _ = buf.ReadFrom(r.Body)
		raw = buf.String()
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: make([]float32, Dimension)})
	}))
	defer server.Close()

	p := NewRemoteProvider(server.URL)
	_, err := p.Embed(context.Background(), "hi")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hi"}`, raw)
}
