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

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
)

var (
	// ErrEmbedderRequired is returned when a nil Embedder is wrapped.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCacheRequired is returned when a nil cache is supplied.
	ErrCacheRequired = errors.New("embedding cache required")
)

// CachingEmbedder memoizes another Embedder's vectors. Entries are keyed by
// model and text, so switching models never serves stale vectors.
// Cache failures are logged and fall through to the wrapped Embedder.
type CachingEmbedder struct {
	inner  Embedder
	cache  storage.EmbeddingCache
	model  string
	logger *slog.Logger
}

var _ Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with cache.
func NewCachingEmbedder(inner Embedder, cache storage.EmbeddingCache, model string) (*CachingEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	return &CachingEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		logger: slog.Default().With("component", "embedding-cache"),
	}, nil
}

// CacheKey returns the cache key for text embedded by model.
func CacheKey(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}

func (c *CachingEmbedder) lookup(ctx context.Context, key core.ID) ([]float32, bool) {
	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", "key", key, "err", err)
		return nil, false
	}
	return vec, ok
}

func (c *CachingEmbedder) store(ctx context.Context, key core.ID, vec []float32) {
	if err := c.cache.Put(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", "key", key, "err", err)
	}
}

func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)
	if vec, ok := c.lookup(ctx, key); ok {
		return vec, nil
	}

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, vec)
	return vec, nil
}

func (c *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	keys := make([]core.ID, len(texts))
	var missing []int

	for i, text := range texts {
		keys[i] = CacheKey(c.model, text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			results[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.inner.EmbedTexts(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}
	for j, i := range missing {
		results[i] = vecs[j]
		c.store(ctx, keys[i], vecs[j])
	}
	return results, nil
}
