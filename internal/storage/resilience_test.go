// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePool is a dbPool whose Ping result is swappable per-call, letting
// tests drive the circuit breaker without a live database.
type fakePool struct {
	pingErr   error
	pingCalls int
}

func (f *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (f *fakePool) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (f *fakePool) Ping(context.Context) error {
	f.pingCalls++
	return f.pingErr
}
func (f *fakePool) Close() {}

func fastPoolConfig() PoolConfig {
	cfg := DefaultPoolConfig()
	cfg.RetryAttempts = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.MaxRetryBackoff = 5 * time.Millisecond
	cfg.CircuitThreshold = 2
	cfg.CircuitWindow = time.Second
	cfg.CircuitCooldown = 10 * time.Millisecond
	return cfg
}

func TestResilientPool_SucceedsWithoutRetry(t *testing.T) {
	fake := &fakePool{}
	rp, err := NewResilientPool(fake, fastPoolConfig(), nil)
	require.NoError(t, err)

	err = rp.Execute(context.Background(), func(ctx context.Context, p dbPool) error {
		return p.Ping(ctx)
	})
	assert.NoError(t, err)
	assert.Equal(t, StateConnected, rp.State())
	assert.Equal(t, 1, fake.pingCalls)
}

func TestResilientPool_RetriesThenFails(t *testing.T) {
	fake := &fakePool{pingErr: errors.New("connection refused")}
	rp, err := NewResilientPool(fake, fastPoolConfig(), nil)
	require.NoError(t, err)

	err = rp.Execute(context.Background(), func(ctx context.Context, p dbPool) error {
		return p.Ping(ctx)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, fake.pingCalls) // 1 initial + 2 retries
}

func TestResilientPool_OpensCircuitAfterThreshold(t *testing.T) {
	fake := &fakePool{pingErr: errors.New("boom")}
	rp, err := NewResilientPool(fake, fastPoolConfig(), nil)
	require.NoError(t, err)

	callFn := func(ctx context.Context, p dbPool) error { return p.Ping(ctx) }

	// First Execute exhausts its retries and records one failure.
	_ = rp.Execute(context.Background(), callFn)
	assert.Equal(t, StateConnected, rp.State())

	// Second Execute's failure pushes failures to the threshold and
	// opens the circuit.
	_ = rp.Execute(context.Background(), callFn)
	assert.Equal(t, StateCircuitOpen, rp.State())

	// While open, Execute short-circuits without calling the pool.
	callsBefore := fake.pingCalls
	err = rp.Execute(context.Background(), callFn)
	assert.Error(t, err)
	assert.Equal(t, callsBefore, fake.pingCalls)
}

func TestResilientPool_HalfOpenRecoversOnSuccess(t *testing.T) {
	fake := &fakePool{pingErr: errors.New("boom")}
	cfg := fastPoolConfig()
	rp, err := NewResilientPool(fake, cfg, nil)
	require.NoError(t, err)

	callFn := func(ctx context.Context, p dbPool) error { return p.Ping(ctx) }
	_ = rp.Execute(context.Background(), callFn)
	_ = rp.Execute(context.Background(), callFn)
	require.Equal(t, StateCircuitOpen, rp.State())

	time.Sleep(cfg.CircuitCooldown * 2)

	fake.pingErr = nil
	err = rp.Execute(context.Background(), callFn)
	assert.NoError(t, err)
	assert.Equal(t, StateConnected, rp.State())
}

func TestNewResilientPool_RejectsInvalidConfig(t *testing.T) {
	cfg := fastPoolConfig()
	cfg.CircuitThreshold = 0
	_, err := NewResilientPool(&fakePool{}, cfg, nil)
	assert.Error(t, err)
}
