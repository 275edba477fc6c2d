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

package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
)

// Index is a VectorIndex persisted in BadgerDB. Vectors are stored
// unit-normalized so cosine similarity reduces to a dot product, and
// queries scan every entry.
type Index struct {
	backend *Backend
	mu      sync.RWMutex
	spec    *core.IndexSpec
	logger  *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex creates an Index over backend. EnsureIndex must be called before use.
func NewIndex(backend *Backend) *Index {
	return &Index{
		backend: backend,
		logger:  slog.Default().With("component", "badger-index"),
	}
}

// EnsureIndex records spec on first use and verifies it on later opens.
func (i *Index) EnsureIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %w", core.ErrIndexProvisioning, err))
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	err := i.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(indexSpecKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			i.logger.Info("creating index", "name", spec.Name, "dimension", spec.Dimension, "metric", spec.Metric)
			if err := tx.Set([]byte(indexSpecKey), storage.MarshalIndexSpec(&spec)); err != nil {
				return err
			}
			return tx.Commit()
		}
		if err != nil {
			return err
		}

		var existing *core.IndexSpec
		err = item.Value(func(val []byte) error {
			var err error
			existing, err = storage.UnmarshalIndexSpec(val)
			return err
		})
		if err != nil {
			return err
		}
		if existing.Dimension != spec.Dimension || existing.Metric != spec.Metric {
			return backoff.Permanent(fmt.Errorf("%w: index %q exists with dimension %d and metric %s",
				core.ErrIndexProvisioning, existing.Name, existing.Dimension, existing.Metric))
		}
		return nil
	}, true)
	if err != nil {
		return err
	}

	i.spec = &spec
	return nil
}

func (i *Index) currentSpec() (core.IndexSpec, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.spec == nil {
		return core.IndexSpec{}, backoff.Permanent(storage.ErrIndexNotEnsured)
	}
	return *i.spec, nil
}

// Upsert writes all entries in one transaction.
func (i *Index) Upsert(ctx context.Context, entries ...core.IndexEntry) error {
	spec, err := i.currentSpec()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.ProductID) == "" {
			return backoff.Permanent(core.ErrMissingProductID)
		}
		if err := core.ValidateVector(entry.Vector, spec.Dimension); err != nil {
			return backoff.Permanent(fmt.Errorf("product %s: %w", entry.ProductID, err))
		}
	}

	return i.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			stored := core.IndexEntry{
				ProductID: entry.ProductID,
				Vector:    core.NormalizeVector(entry.Vector),
			}
			if err := tx.Set(makeIndexEntryKey(entry.ProductID), storage.MarshalIndexEntry(&stored)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query scans all entries and returns the topK most similar, ties broken
// by product ID.
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	spec, err := i.currentSpec()
	if err != nil {
		return nil, err
	}
	if err := core.ValidateVector(vector, spec.Dimension); err != nil {
		return nil, backoff.Permanent(err)
	}
	matches := make([]core.Match, 0)
	if topK <= 0 {
		return matches, nil
	}

	query := core.NormalizeVector(vector)
	err = i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexEntryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entry *core.IndexEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalIndexEntry(val)
				return err
			})
			if err != nil {
				return err
			}

			matches = append(matches, core.Match{
				ProductID: entry.ProductID,
				Score:     core.DotProduct(query, entry.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b core.Match) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (i *Index) Count(ctx context.Context) (int, error) {
	count := 0
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexEntryPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close is a no-op; the Backend is closed by its owner.
func (i *Index) Close() error {
	return nil
}
