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

package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/ai/hashed"
	"github.com/poiesic/catalogsearch/ai/mock"
	"github.com/poiesic/catalogsearch/catalog"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/storage/badger"
	"github.com/poiesic/catalogsearch/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIndex is a VectorIndex with scripted responses.
type stubIndex struct {
	ensureErr error
	queryErr  error
	matches   []core.Match
	count     int
	// truncate cuts matches to the requested topK in stored order.
	truncate  bool
	lastTopK  int
}

func (s *stubIndex) EnsureIndex(context.Context, core.IndexSpec) error { return s.ensureErr }
func (s *stubIndex) Upsert(context.Context, ...core.IndexEntry) error   { return nil }
func (s *stubIndex) Count(context.Context) (int, error)                 { return s.count, nil }
func (s *stubIndex) Close() error                                       { return nil }

func (s *stubIndex) Query(_ context.Context, _ []float32, topK int) ([]core.Match, error) {
	s.lastTopK = topK
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.truncate && len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

type recordingMonitor struct {
	mu         sync.Mutex
	normalized string
	matches    []core.Match
	completed  []core.ProductSummary
	failed     error
}

func (m *recordingMonitor) SearchStarted(_, normalized string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.normalized = normalized
}

func (m *recordingMonitor) AfterIndexQuery(matches []core.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = matches
}

func (m *recordingMonitor) SearchCompleted(_ string, results []core.ProductSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = results
}

func (m *recordingMonitor) SearchFailed(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = err
}

func newTestNormalizer(t *testing.T) *text.Normalizer {
	t.Helper()
	n, err := text.NewNormalizer(text.WithLemmatizer(text.IdentityLemmatizer{}))
	require.NoError(t, err)
	return n
}

func newBadgerIndex(t *testing.T) storage.VectorIndex {
	t.Helper()
	index, _, backend, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return index
}

func newHashedService(t *testing.T) (*Service, *catalog.Store, storage.VectorIndex) {
	t.Helper()
	embedder, err := hashed.NewEmbedder(core.DefaultDimension)
	require.NoError(t, err)
	return newReadyService(t, embedder, newBadgerIndex(t))
}

func newReadyService(t *testing.T, embedder ai.Embedder, index storage.VectorIndex, opts ...Option) (*Service, *catalog.Store, storage.VectorIndex) {
	t.Helper()
	store := catalog.NewStore()
	svc, err := NewService(newTestNormalizer(t), embedder, index, store, opts...)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	return svc, store, index
}

func scarfCatalog() []core.ProductRecord {
	return []core.ProductRecord{
		{
			ProductID:    "red-scarf",
			ProductName:  "Red Wool Scarf",
			Category:     "Clothing",
			SellingPrice: "$19.99",
			AboutProduct: "Soft red wool scarf for cold winter day",
		},
		{
			ProductID:    "blue-scarf",
			ProductName:  "Blue Cotton Scarf",
			Category:     "Clothing",
			SellingPrice: "$14.99",
			AboutProduct: "Lightweight blue cotton scarf",
		},
		{
			ProductID:    "wallet",
			ProductName:  "Leather Wallet",
			Category:     "Accessories",
			SellingPrice: "$29.99",
			AboutProduct: "Slim leather wallet with card slot",
		},
	}
}

func TestNewService(t *testing.T) {
	n := newTestNormalizer(t)
	embedder := mock.NewMockEmbedder()
	index := &stubIndex{}
	store := catalog.NewStore()

	t.Run("valid configuration", func(t *testing.T) {
		svc, err := NewService(n, embedder, index, store)
		require.NoError(t, err)
		assert.Equal(t, StateUninitialized, svc.State())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		_, err := NewService(n, embedder, index, store, WithLogger(nil))
		require.NoError(t, err)
	})

	t.Run("invalid index spec", func(t *testing.T) {
		_, err := NewService(n, embedder, index, store, WithIndexSpec(core.IndexSpec{}))
		assert.ErrorIs(t, err, core.ErrInvalidIndexSpec)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewService(nil, embedder, index, store)
		assert.Equal(t, ErrNormalizerRequired, err)
		_, err = NewService(n, nil, index, store)
		assert.Equal(t, ErrEmbedderRequired, err)
		_, err = NewService(n, embedder, nil, store)
		assert.Equal(t, ErrIndexRequired, err)
		_, err = NewService(n, embedder, index, nil)
		assert.Equal(t, ErrStoreRequired, err)
	})
}

func TestService_NotReady(t *testing.T) {
	svc, err := NewService(newTestNormalizer(t), mock.NewMockEmbedder(), &stubIndex{}, catalog.NewStore())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Search(ctx, "scarf", 5)
	assert.ErrorIs(t, err, core.ErrNotReady)
	_, err = svc.Describe(ctx, "p1")
	assert.ErrorIs(t, err, core.ErrNotReady)
	_, err = svc.IngestCatalog(ctx, scarfCatalog())
	assert.ErrorIs(t, err, core.ErrNotReady)
	_, err = svc.LoadCatalog(scarfCatalog())
	assert.ErrorIs(t, err, core.ErrNotReady)
	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, core.ErrNotReady)
}

func TestService_StartFailureStaysUninitialized(t *testing.T) {
	index := &stubIndex{ensureErr: errors.New("quota exceeded")}
	svc, err := NewService(newTestNormalizer(t), mock.NewMockEmbedder(), index, catalog.NewStore())
	require.NoError(t, err)

	err = svc.Start(context.Background())
	assert.ErrorIs(t, err, core.ErrIndexProvisioning)
	assert.Equal(t, StateUninitialized, svc.State())

	index.ensureErr = nil
	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, StateReady, svc.State())
	assert.Equal(t, "ready", svc.State().String())
}

func TestService_ScarvesRankAboveWallet(t *testing.T) {
	svc, _, _ := newHashedService(t)
	ctx := context.Background()

	report, err := svc.IngestCatalog(ctx, scarfCatalog())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 3, report.Indexed)

	results, err := svc.Search(ctx, "warm winter scarf", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "red-scarf", results[0].ProductID)
	assert.Equal(t, "blue-scarf", results[1].ProductID)
	assert.Equal(t, "wallet", results[2].ProductID)
	assert.Greater(t, results[1].Score, results[2].Score)
	assert.Equal(t, "Red Wool Scarf", results[0].ProductName)
	assert.Equal(t, "$19.99", results[0].SellingPrice)
}

func TestService_IngestPopulatesBothStores(t *testing.T) {
	svc, store, index := newHashedService(t)
	ctx := context.Background()

	records := make([]core.ProductRecord, 12)
	for i := range records {
		records[i] = core.ProductRecord{
			ProductID:    fmt.Sprintf("sku-%02d", i),
			AboutProduct: fmt.Sprintf("gadget model %d", i),
		}
	}

	_, err := svc.IngestCatalog(ctx, records)
	require.NoError(t, err)

	assert.Equal(t, 12, store.Len())
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Indexed: 12, Catalog: 12}, stats)
}

func TestService_DescribeNotFound(t *testing.T) {
	svc, _, _ := newHashedService(t)

	_, err := svc.Describe(context.Background(), "nonexistent-id")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_ReingestOverwrites(t *testing.T) {
	svc, _, index := newHashedService(t)
	ctx := context.Background()

	_, err := svc.IngestCatalog(ctx, scarfCatalog())
	require.NoError(t, err)

	updated := core.ProductRecord{
		ProductID:    "wallet",
		ProductName:  "Wallet Scarf Combo",
		SellingPrice: "$39.99",
		AboutProduct: "warm winter scarf",
	}
	_, err = svc.IngestCatalog(ctx, []core.ProductRecord{updated})
	require.NoError(t, err)

	record, err := svc.Describe(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, "Wallet Scarf Combo", record.ProductName)
	assert.Equal(t, "$39.99", record.SellingPrice)
	assert.Empty(t, record.Category)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := svc.Search(ctx, "warm winter scarf", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "wallet", results[0].ProductID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestService_QueryIsNormalized(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	index := &stubIndex{}
	svc, _, _ := newReadyService(t, embedder, index)

	_, err := svc.Search(context.Background(), "The WARM scarves, for winter!", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"warm scarves winter"}, embedder.Inputs())
}

func TestService_QueryFailureIsNotEmptyResult(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	index := &stubIndex{queryErr: errors.New("connection reset")}
	monitor := &recordingMonitor{}
	svc, _, _ := newReadyService(t, embedder, index, WithMonitor(monitor))

	results, err := svc.Search(context.Background(), "scarf", 5)
	assert.ErrorIs(t, err, core.ErrQuery)
	assert.Nil(t, results)

	monitor.mu.Lock()
	assert.ErrorIs(t, monitor.failed, core.ErrQuery)
	monitor.mu.Unlock()

	index.queryErr = nil
	results, err = svc.Search(context.Background(), "scarf", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestService_EmbedFailureIsQueryError(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("model offline")
	})
	svc, _, _ := newReadyService(t, embedder, &stubIndex{})

	_, err := svc.Search(context.Background(), "scarf", 5)
	assert.ErrorIs(t, err, core.ErrQuery)
}

func TestService_EmptyQueryIsStable(t *testing.T) {
	svc, _, _ := newHashedService(t)
	ctx := context.Background()
	_, err := svc.IngestCatalog(ctx, scarfCatalog())
	require.NoError(t, err)

	first, err := svc.Search(ctx, "", 5)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := svc.Search(ctx, "", 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestService_TieBreakAndMissingRecords(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	index := &stubIndex{matches: []core.Match{
		{ProductID: "b", Score: 0.5},
		{ProductID: "ghost", Score: 0.7},
		{ProductID: "a", Score: 0.5},
		{ProductID: "c", Score: 0.9},
	}}
	monitor := &recordingMonitor{}
	svc, store, _ := newReadyService(t, embedder, index)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(core.ProductRecord{ProductID: id}))
	}

	results, err := svc.SearchWithMonitor(context.Background(), "anything", 5, monitor)
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ProductID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	assert.Len(t, monitor.matches, 4)
	assert.Equal(t, "anything", monitor.normalized)
	assert.Equal(t, results, monitor.completed)
}

func TestService_TieAtCutoffOrderedByID(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	index := &stubIndex{truncate: true, matches: []core.Match{
		{ProductID: "c", Score: 0.9},
		{ProductID: "b", Score: 0.5},
		{ProductID: "a", Score: 0.5},
	}}
	svc, store, _ := newReadyService(t, embedder, index)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(core.ProductRecord{ProductID: id}))
	}

	results, err := svc.Search(context.Background(), "anything", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].ProductID)
	assert.Equal(t, "a", results[1].ProductID)
	assert.Greater(t, index.lastTopK, 2)
}

func TestService_DefaultTopK(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	matches := make([]core.Match, 10)
	index := &stubIndex{matches: matches}
	svc, store, _ := newReadyService(t, embedder, index)
	for i := range matches {
		matches[i] = core.Match{ProductID: fmt.Sprintf("p%d", i), Score: float32(i) / 10}
		require.NoError(t, store.Put(core.ProductRecord{ProductID: matches[i].ProductID}))
	}

	results, err := svc.Search(context.Background(), "x", 0)
	require.NoError(t, err)
	require.Len(t, results, core.DefaultTopK)
	assert.Equal(t, "p9", results[0].ProductID)

	_, err = svc.Search(context.Background(), "x", -1)
	assert.ErrorIs(t, err, core.ErrInvalidTopK)
}

func TestService_LoadCatalog(t *testing.T) {
	svc, store, index := newHashedService(t)
	ctx := context.Background()

	report, err := svc.LoadCatalog(append(scarfCatalog(), core.ProductRecord{ProductName: "no id"}))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 3, store.Len())

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	record, err := svc.Describe(ctx, "red-scarf")
	require.NoError(t, err)
	assert.Equal(t, "soft red wool scarf cold winter day", record.Description)
}
