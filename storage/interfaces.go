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

	"github.com/poiesic/catalogsearch/core"
)

// VectorIndex is a nearest-neighbour store of product embeddings keyed by
// product ID. Implementations must be safe for concurrent use.
type VectorIndex interface {
	// EnsureIndex creates the index described by spec if it does not exist.
	// It is idempotent. An existing index with a different dimension or
	// metric is an error.
	EnsureIndex(ctx context.Context, spec core.IndexSpec) error

	// Upsert inserts or overwrites the entries keyed by ProductID. A call
	// either stores every entry or fails; it is safe to retry.
	Upsert(ctx context.Context, entries ...core.IndexEntry) error

	// Query returns at most topK entries ordered by cosine similarity,
	// highest first. An empty index yields an empty slice and no error.
	Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the index client.
	Close() error
}

// EmbeddingCache stores vectors under content-derived keys.
type EmbeddingCache interface {
	// Get returns the cached vector for key and whether it was present.
	Get(ctx context.Context, key core.ID) ([]float32, bool, error)

	// Put stores vec under key, replacing any previous value.
	Put(ctx context.Context, key core.ID, vec []float32) error
}
