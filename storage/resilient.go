// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/core"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 200 * time.Millisecond
	defaultTimeout   = 10 * time.Second

	// Creating a serverless index can take minutes before it reports ready.
	defaultProvisionTimeout = 5 * time.Minute
)

// ErrIndexRequired is returned when a nil VectorIndex is wrapped.
var ErrIndexRequired = errors.New("vector index required")

// ResilientIndex decorates a VectorIndex with a per-attempt timeout and
// bounded exponential-backoff retries, and classifies final failures as
// core.ErrIndexProvisioning, core.ErrUpsert or core.ErrQuery. EnsureIndex
// attempts are bounded by the provisioning timeout instead of the
// per-call one.
type ResilientIndex struct {
	inner            VectorIndex
	attempts         int
	baseDelay        time.Duration
	timeout          time.Duration
	provisionTimeout time.Duration
	logger           *slog.Logger
}

var _ VectorIndex = (*ResilientIndex)(nil)

// ResilientOption configures a ResilientIndex.
type ResilientOption func(*ResilientIndex) error

// WithAttempts sets the maximum attempts per call. Default is 3.
func WithAttempts(n int) ResilientOption {
	return func(r *ResilientIndex) error {
		if n <= 0 {
			return backoff.ErrInvalidMaxAttempts
		}
		r.attempts = n
		return nil
	}
}

// WithBaseDelay sets the delay before the first retry. It doubles per retry.
// Default is 200ms.
func WithBaseDelay(d time.Duration) ResilientOption {
	return func(r *ResilientIndex) error {
		r.baseDelay = d
		return nil
	}
}

// WithTimeout bounds each attempt. Default is 10s.
func WithTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientIndex) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		r.timeout = d
		return nil
	}
}

// WithProvisionTimeout bounds each EnsureIndex attempt. Default is 5m.
func WithProvisionTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientIndex) error {
		if d <= 0 {
			return fmt.Errorf("provision timeout must be positive, got %s", d)
		}
		r.provisionTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *ResilientIndex) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResilientIndex wraps inner.
func NewResilientIndex(inner VectorIndex, opts ...ResilientOption) (*ResilientIndex, error) {
	if inner == nil {
		return nil, ErrIndexRequired
	}
	r := &ResilientIndex{
		inner:            inner,
		attempts:         defaultAttempts,
		baseDelay:        defaultBaseDelay,
		timeout:          defaultTimeout,
		provisionTimeout: defaultProvisionTimeout,
		logger:           slog.Default().With("component", "resilient-index"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *ResilientIndex) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return r.callWithin(ctx, op, r.timeout, fn)
}

func (r *ResilientIndex) callWithin(ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) error) error {
	err := backoff.RetryWithBackoff(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	}, r.attempts, r.baseDelay)
	if err != nil {
		r.logger.Warn("index call failed", "op", op, "attempts", r.attempts, "err", err)
	}
	return err
}

func (r *ResilientIndex) EnsureIndex(ctx context.Context, spec core.IndexSpec) error {
	err := r.callWithin(ctx, "ensure", r.provisionTimeout, func(ctx context.Context) error {
		return r.inner.EnsureIndex(ctx, spec)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexProvisioning, err)
	}
	return nil
}

func (r *ResilientIndex) Upsert(ctx context.Context, entries ...core.IndexEntry) error {
	err := r.call(ctx, "upsert", func(ctx context.Context) error {
		return r.inner.Upsert(ctx, entries...)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrUpsert, err)
	}
	return nil
}

func (r *ResilientIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	var matches []core.Match
	err := r.call(ctx, "query", func(ctx context.Context) error {
		var err error
		matches, err = r.inner.Query(ctx, vector, topK)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrQuery, err)
	}
	return matches, nil
}

func (r *ResilientIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := r.call(ctx, "count", func(ctx context.Context) error {
		var err error
		count, err = r.inner.Count(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", core.ErrQuery, err)
	}
	return count, nil
}

func (r *ResilientIndex) Close() error {
	return r.inner.Close()
}
