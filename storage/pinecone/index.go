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

package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/storage/httpjson"
)

const (
	DefaultControlURL = "https://api.pinecone.io"
	DefaultCloud      = "aws"
	DefaultRegion     = "us-east-1"
	APIVersion        = "2024-07"

	defaultReadyPoll    = 2 * time.Second
	defaultReadyTimeout = 2 * time.Minute
)

var (
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("pinecone API key required")

	// ErrIndexNotReady is returned when a new index does not become ready in time.
	ErrIndexNotReady = errors.New("pinecone index not ready")
)

// Config configures a Pinecone index client.
type Config struct {
	APIKey     string
	ControlURL string
	Cloud      string
	Region     string
	Namespace  string

	// ReadyPoll and ReadyTimeout bound the wait for a newly created index.
	ReadyPoll    time.Duration
	ReadyTimeout time.Duration

	HTTPClient *http.Client
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type createIndexRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

type vector struct {
	ID     string    `json:"id"`
	Values []float32 `json:"values"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID    string  `json:"id"`
		Score float32 `json:"score"`
	} `json:"matches"`
}

type statsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
}

// Index is a Pinecone-backed VectorIndex.
type Index struct {
	config  Config
	control *httpjson.Client

	mu   sync.RWMutex
	spec *core.IndexSpec
	data *httpjson.Client

	logger *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex creates a Pinecone client. The API key must come from the
// caller's configuration.
func NewIndex(config Config) (*Index, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrAPIKeyRequired
	}
	if config.ControlURL == "" {
		config.ControlURL = DefaultControlURL
	}
	if config.Cloud == "" {
		config.Cloud = DefaultCloud
	}
	if config.Region == "" {
		config.Region = DefaultRegion
	}
	if config.ReadyPoll <= 0 {
		config.ReadyPoll = defaultReadyPoll
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = defaultReadyTimeout
	}

	return &Index{
		config:  config,
		control: httpjson.NewClient(httpjson.Config{BaseURL: config.ControlURL, Headers: config.headers(), HTTPClient: config.HTTPClient}),
		logger:  slog.Default().With("component", "pinecone-index"),
	}, nil
}

func (c Config) headers() map[string]string {
	return map[string]string{
		"Api-Key":                c.APIKey,
		"X-Pinecone-API-Version": APIVersion,
	}
}

// EnsureIndex looks the index up and creates it when missing, then waits
// until Pinecone reports it ready.
func (i *Index) EnsureIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return backoff.Permanent(err)
	}

	desc, err := i.describe(ctx, spec.Name)
	if errors.Is(err, httpjson.ErrNotFound) {
		i.logger.Info("creating index", "name", spec.Name, "dimension", spec.Dimension,
			"cloud", i.config.Cloud, "region", i.config.Region)
		desc, err = i.create(ctx, spec)
	}
	if err != nil {
		return err
	}

	if desc.Dimension != spec.Dimension || !strings.EqualFold(desc.Metric, string(spec.Metric)) {
		return backoff.Permanent(fmt.Errorf("%w: index %q exists with dimension %d and metric %s",
			core.ErrIndexProvisioning, spec.Name, desc.Dimension, desc.Metric))
	}

	if !desc.Status.Ready {
		desc, err = i.waitReady(ctx, spec.Name)
		if err != nil {
			return err
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.spec = &spec
	i.data = httpjson.NewClient(httpjson.Config{BaseURL: desc.Host, Headers: i.config.headers(), HTTPClient: i.config.HTTPClient})
	return nil
}

func (i *Index) describe(ctx context.Context, name string) (*indexDescription, error) {
	var desc indexDescription
	if err := i.control.Do(ctx, http.MethodGet, "indexes/"+name, nil, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (i *Index) create(ctx context.Context, spec core.IndexSpec) (*indexDescription, error) {
	req := createIndexRequest{Name: spec.Name, Dimension: spec.Dimension, Metric: string(spec.Metric)}
	req.Spec.Serverless.Cloud = i.config.Cloud
	req.Spec.Serverless.Region = i.config.Region

	var desc indexDescription
	if err := i.control.Do(ctx, http.MethodPost, "indexes", req, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (i *Index) waitReady(ctx context.Context, name string) (*indexDescription, error) {
	ctx, cancel := context.WithTimeout(ctx, i.config.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(i.config.ReadyPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrIndexNotReady, name, ctx.Err())
		case <-ticker.C:
		}

		desc, err := i.describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if desc.Status.Ready {
			return desc, nil
		}
		i.logger.Debug("waiting for index", "name", name, "state", desc.Status.State)
	}
}

func (i *Index) dataPlane() (*httpjson.Client, core.IndexSpec, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.data == nil {
		return nil, core.IndexSpec{}, backoff.Permanent(storage.ErrIndexNotEnsured)
	}
	return i.data, *i.spec, nil
}

// Upsert validates every entry against the ensured dimension, then writes
// them in one /vectors/upsert call.
func (i *Index) Upsert(ctx context.Context, entries ...core.IndexEntry) error {
	data, spec, err := i.dataPlane()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	req := upsertRequest{Vectors: make([]vector, 0, len(entries)), Namespace: i.config.Namespace}
	for _, entry := range entries {
		if strings.TrimSpace(entry.ProductID) == "" {
			return backoff.Permanent(core.ErrMissingProductID)
		}
		if err := core.ValidateVector(entry.Vector, spec.Dimension); err != nil {
			return backoff.Permanent(fmt.Errorf("product %s: %w", entry.ProductID, err))
		}
		req.Vectors = append(req.Vectors, vector{ID: entry.ProductID, Values: entry.Vector})
	}
	return data.Do(ctx, http.MethodPost, "vectors/upsert", req, nil)
}

// Query asks /query for the topK nearest vectors. A non-positive topK
// yields an empty result.
func (i *Index) Query(ctx context.Context, vec []float32, topK int) ([]core.Match, error) {
	data, spec, err := i.dataPlane()
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

	var resp queryResponse
	req := queryRequest{Vector: vec, TopK: topK, Namespace: i.config.Namespace, IncludeMetadata: true}
	if err := data.Do(ctx, http.MethodPost, "query", req, &resp); err != nil {
		return nil, err
	}
	for _, m := range resp.Matches {
		matches = append(matches, core.Match{ProductID: m.ID, Score: m.Score})
	}
	return matches, nil
}

// Count reports the vector count from /describe_index_stats, for the
// configured namespace when one is set.
func (i *Index) Count(ctx context.Context) (int, error) {
	data, _, err := i.dataPlane()
	if err != nil {
		return 0, err
	}

	var resp statsResponse
	if err := data.Do(ctx, http.MethodPost, "describe_index_stats", struct{}{}, &resp); err != nil {
		return 0, err
	}
	if i.config.Namespace != "" {
		return resp.Namespaces[i.config.Namespace].VectorCount, nil
	}
	return resp.TotalVectorCount, nil
}

// Close is a no-op; the HTTP client holds no per-index resources.
func (i *Index) Close() error {
	return nil
}
