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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/storage/httpjson"
)

const (
	DefaultURL = "http://localhost:6333"

	payloadProductID = "product_id"
)

// Config configures a Qdrant index client. APIKey may be empty for
// unauthenticated local deployments.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionRequest struct {
	Vectors vectorParams `json:"vectors"`
}

type collectionResponse struct {
	Result struct {
		Status string `json:"status"`
		Config struct {
			Params struct {
				Vectors vectorParams `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

type countResponse struct {
	Result struct {
		Count int `json:"count"`
	} `json:"result"`
}

// Index is a Qdrant-backed VectorIndex.
type Index struct {
	client *httpjson.Client

	mu   sync.RWMutex
	spec *core.IndexSpec

	logger *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex creates a Qdrant client.
func NewIndex(config Config) *Index {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	headers := map[string]string{}
	if config.APIKey != "" {
		headers["api-key"] = config.APIKey
	}
	return &Index{
		client: httpjson.NewClient(httpjson.Config{BaseURL: config.URL, Headers: headers, HTTPClient: config.HTTPClient}),
		logger: slog.Default().With("component", "qdrant-index"),
	}
}

// PointID maps a product ID onto the UUID Qdrant stores it under.
func PointID(productID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(productID)).String()
}

func collectionPath(name string, parts ...string) string {
	return strings.Join(append([]string{"collections", url.PathEscape(name)}, parts...), "/")
}

// EnsureIndex creates the collection if it is missing and checks the
// vector size of an existing one.
func (i *Index) EnsureIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return backoff.Permanent(err)
	}

	var existing collectionResponse
	err := i.client.Do(ctx, http.MethodGet, collectionPath(spec.Name), nil, &existing)
	switch {
	case errors.Is(err, httpjson.ErrNotFound):
		i.logger.Info("creating collection", "name", spec.Name, "dimension", spec.Dimension)
		req := collectionRequest{Vectors: vectorParams{Size: spec.Dimension, Distance: "Cosine"}}
		if err := i.client.Do(ctx, http.MethodPut, collectionPath(spec.Name), req, nil); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		params := existing.Result.Config.Params.Vectors
		if params.Size != spec.Dimension || !strings.EqualFold(params.Distance, "Cosine") {
			return backoff.Permanent(fmt.Errorf("%w: collection %q exists with size %d and distance %s",
				core.ErrIndexProvisioning, spec.Name, params.Size, params.Distance))
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
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

// Upsert writes the entries as points and waits for the write to apply.
func (i *Index) Upsert(ctx context.Context, entries ...core.IndexEntry) error {
	spec, err := i.currentSpec()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	req := upsertRequest{Points: make([]point, 0, len(entries))}
	for _, entry := range entries {
		if strings.TrimSpace(entry.ProductID) == "" {
			return backoff.Permanent(core.ErrMissingProductID)
		}
		if err := core.ValidateVector(entry.Vector, spec.Dimension); err != nil {
			return backoff.Permanent(fmt.Errorf("product %s: %w", entry.ProductID, err))
		}
		req.Points = append(req.Points, point{
			ID:      PointID(entry.ProductID),
			Vector:  entry.Vector,
			Payload: map[string]any{payloadProductID: entry.ProductID},
		})
	}
	return i.client.Do(ctx, http.MethodPut, collectionPath(spec.Name, "points")+"?wait=true", req, nil)
}

// Query searches the collection for the topK nearest points.
func (i *Index) Query(ctx context.Context, vec []float32, topK int) ([]core.Match, error) {
	spec, err := i.currentSpec()
	if err != nil {
		return nil, err
	}
	if err := core.ValidateVector(vec, spec.Dimension); err != nil {
		return nil, backoff.Permanent(err)
	}
	matches := make([]core.Match, 0)
	if topK <= 0 {
		return matches, nil
	}

	var resp searchResponse
	req := searchRequest{Vector: vec, Limit: topK, WithPayload: true}
	if err := i.client.Do(ctx, http.MethodPost, collectionPath(spec.Name, "points", "search"), req, &resp); err != nil {
		return nil, err
	}
	for _, hit := range resp.Result {
		id, _ := hit.Payload[payloadProductID].(string)
		if id == "" {
			i.logger.Warn("search hit without product id", "point", hit.ID)
			continue
		}
		matches = append(matches, core.Match{ProductID: id, Score: hit.Score})
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (i *Index) Count(ctx context.Context) (int, error) {
	spec, err := i.currentSpec()
	if err != nil {
		return 0, err
	}
	var resp countResponse
	if err := i.client.Do(ctx, http.MethodPost, collectionPath(spec.Name, "points", "count"), map[string]bool{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close is a no-op; the HTTP client holds no per-index resources.
func (i *Index) Close() error {
	return nil
}
