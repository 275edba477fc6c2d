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

package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	size   int
	points map[string]point
}

func newFakeQdrant(t *testing.T) *fakeQdrant {
	f := &fakeQdrant{t: t, points: make(map[string]point)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeQdrant) handle(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "q-key", r.Header.Get("api-key"))

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/products":
		if f.size == 0 {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		var resp collectionResponse
		resp.Result.Status = "green"
		resp.Result.Config.Params.Vectors = vectorParams{Size: f.size, Distance: "Cosine"}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPut && r.URL.Path == "/collections/products":
		var req collectionRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "Cosine", req.Vectors.Distance)
		f.size = req.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/products/points":
		assert.Equal(f.t, "true", r.URL.Query().Get("wait"))
		var req upsertRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		for _, p := range req.Points {
			f.points[p.ID] = p
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/products/points/search":
		var req searchRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(f.t, req.WithPayload)
		var resp searchResponse
		for _, p := range f.points {
			resp.Result = append(resp.Result, struct {
				ID      any            `json:"id"`
				Score   float32        `json:"score"`
				Payload map[string]any `json:"payload"`
			}{p.ID, core.CosineSimilarity(req.Vector, p.Vector), p.Payload})
		}
		sort.Slice(resp.Result, func(a, b int) bool { return resp.Result[a].Score > resp.Result[b].Score })
		if len(resp.Result) > req.Limit {
			resp.Result = resp.Result[:req.Limit]
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && r.URL.Path == "/collections/products/points/count":
		var resp countResponse
		resp.Result.Count = len(f.points)
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("abc"), PointID("abc"))
	assert.NotEqual(t, PointID("abc"), PointID("abd"))
	assert.Len(t, PointID("abc"), 36)
}

func TestIndex_EnsureCreatesCollection(t *testing.T) {
	f := newFakeQdrant(t)
	index := NewIndex(Config{URL: f.server.URL, APIKey: "q-key"})

	spec := core.IndexSpec{Name: "products", Dimension: 3, Metric: core.MetricCosine}
	require.NoError(t, index.EnsureIndex(context.Background(), spec))
	require.NoError(t, index.EnsureIndex(context.Background(), spec))

	f.mu.Lock()
	assert.Equal(t, 3, f.size)
	f.mu.Unlock()
}

func TestIndex_EnsureSizeMismatch(t *testing.T) {
	f := newFakeQdrant(t)
	f.size = 768
	index := NewIndex(Config{URL: f.server.URL, APIKey: "q-key"})

	err := index.EnsureIndex(context.Background(), core.IndexSpec{Name: "products", Dimension: 384, Metric: core.MetricCosine})
	assert.ErrorIs(t, err, core.ErrIndexProvisioning)
	assert.True(t, backoff.IsPermanent(err))
}

func TestIndex_UpsertQueryCount(t *testing.T) {
	f := newFakeQdrant(t)
	index := NewIndex(Config{URL: f.server.URL, APIKey: "q-key"})
	ctx := context.Background()

	require.NoError(t, index.EnsureIndex(ctx, core.IndexSpec{Name: "products", Dimension: 2, Metric: core.MetricCosine}))
	require.NoError(t, index.Upsert(ctx,
		core.IndexEntry{ProductID: "sku-1", Vector: []float32{1, 0}},
		core.IndexEntry{ProductID: "sku-2", Vector: []float32{0, 1}},
	))
	// Re-upserting the same product overwrites its point.
	require.NoError(t, index.Upsert(ctx, core.IndexEntry{ProductID: "sku-2", Vector: []float32{0.1, 1}}))

	matches, err := index.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "sku-2", matches[0].ProductID)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndex_QueryEmptyCollection(t *testing.T) {
	f := newFakeQdrant(t)
	index := NewIndex(Config{URL: f.server.URL, APIKey: "q-key"})
	ctx := context.Background()
	require.NoError(t, index.EnsureIndex(ctx, core.IndexSpec{Name: "products", Dimension: 2, Metric: core.MetricCosine}))

	matches, err := index.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestIndex_RequiresEnsure(t *testing.T) {
	index := NewIndex(Config{URL: "http://127.0.0.1:1"})

	_, err := index.Query(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, storage.ErrIndexNotEnsured)
}
