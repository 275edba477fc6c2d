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

package catalog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/catalogsearch/core"
)

// Store is an in-memory map of product ID to record.
type Store struct {
	mu      sync.RWMutex
	records map[string]core.ProductRecord
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]core.ProductRecord)}
}

// Put inserts or replaces the record under its ProductID.
func (s *Store) Put(record core.ProductRecord) error {
	if err := core.ValidateProductRecord(&record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ProductID] = record
	return nil
}

// Get returns the record for id or core.ErrNotFound.
func (s *Store) Get(id string) (core.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return core.ProductRecord{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return record, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IDs returns every stored product ID in ascending order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}
