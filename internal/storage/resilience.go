// Copyright (C) 2026 semindex contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package storage

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JudgeZ/semindex/internal/apperr"
	"github.com/JudgeZ/semindex/internal/logging"
)

// ConnectionState mirrors the circuit breaker's lifecycle: Connected
// while calls succeed, CircuitOpen once failures cross the threshold
// within the window, HalfOpen while probing recovery. Degraded is
// declared, but ResilientPool never enters it.
type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateDegraded
	StateCircuitOpen
	StateHalfOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateCircuitOpen:
		return "circuit_open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// PoolConfig governs the resilience wrapper's retry and circuit
// breaker behavior, the same knobs a resilient external-store client
// exposes, applied here to the pgxpool.Pool instead.
type PoolConfig struct {
	RetryAttempts    int
	RetryBackoff     time.Duration
	MaxRetryBackoff  time.Duration
	RetryJitter      float64
	CircuitThreshold int
	CircuitWindow    time.Duration
	CircuitCooldown  time.Duration
}

// DefaultPoolConfig matches conservative production defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		RetryAttempts:    3,
		RetryBackoff:     100 * time.Millisecond,
		MaxRetryBackoff:  5 * time.Second,
		RetryJitter:      0.25,
		CircuitThreshold: 5,
		CircuitWindow:    30 * time.Second,
		CircuitCooldown:  30 * time.Second,
	}
}

func (c PoolConfig) validate() error {
	if c.RetryAttempts < 0 {
		return apperr.Invalid("retry_attempts", "must be >= 0")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return apperr.Invalid("retry_jitter", "must be in [0, 1]")
	}
	if c.CircuitThreshold <= 0 {
		return apperr.Invalid("circuit_threshold", "must be > 0")
	}
	return nil
}

// dbPool is the subset of *pgxpool.Pool the resilient wrapper drives;
// narrowing to an interface keeps the circuit breaker testable without
// a live database.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// ResilientPool wraps dbPool with a circuit breaker and jittered
// retry.
type ResilientPool struct {
	pool   dbPool
	cfg    PoolConfig
	logger *logging.Logger

	mu           sync.Mutex
	state        ConnectionState
	failures     int
	windowStart  time.Time
	openedAt     time.Time
}

// NewResilientPool validates cfg and wraps pool.
func NewResilientPool(pool dbPool, cfg PoolConfig, logger *logging.Logger) (*ResilientPool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ResilientPool{pool: pool, cfg: cfg, logger: logger, state: StateConnected}, nil
}

// State returns the current circuit state.
func (r *ResilientPool) State() ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close releases the underlying pool.
func (r *ResilientPool) Close() { r.pool.Close() }

// Execute runs fn with retry-with-jittered-backoff, short-circuiting
// immediately when the breaker is open and the cooldown hasn't
// elapsed.
func (r *ResilientPool) Execute(ctx context.Context, fn func(ctx context.Context, pool dbPool) error) error {
	if !r.allowCall() {
		return fmt.Errorf("storage: %w: circuit open", apperr.ErrBackend)
	}

	var lastErr error
	backoff := r.cfg.RetryBackoff
	for attempt := 0; attempt <= r.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jittered(backoff, r.cfg.RetryJitter)):
			}
			backoff *= 2
			if backoff > r.cfg.MaxRetryBackoff {
				backoff = r.cfg.MaxRetryBackoff
			}
		}

		lastErr = fn(ctx, r.pool)
		if lastErr == nil {
			r.recordSuccess()
			return nil
		}
		r.logger.Warn("storage call failed, retrying", "attempt", attempt, "error", lastErr)
	}

	r.recordFailure()
	return fmt.Errorf("storage: %w: %v", apperr.ErrBackend, lastErr)
}

func (r *ResilientPool) allowCall() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateCircuitOpen:
		if time.Since(r.openedAt) >= r.cfg.CircuitCooldown {
			r.state = StateHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (r *ResilientPool) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
	r.state = StateConnected
}

func (r *ResilientPool) recordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.windowStart) > r.cfg.CircuitWindow {
		r.windowStart = now
		r.failures = 0
	}
	r.failures++

	if r.state == StateHalfOpen || r.failures >= r.cfg.CircuitThreshold {
		r.state = StateCircuitOpen
		r.openedAt = now
	}
}

func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	delta := float64(base) * jitter
	offset := (rand.Float64()*2 - 1) * delta
	result := float64(base) + offset
	if result < 0 {
		return 0
	}
	return time.Duration(result)
}
