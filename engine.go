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

package catalogsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/ai/hashed"
	"github.com/poiesic/catalogsearch/ai/openai"
	"github.com/poiesic/catalogsearch/catalog"
	"github.com/poiesic/catalogsearch/config"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/search"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/storage/badger"
	"github.com/poiesic/catalogsearch/storage/pinecone"
	"github.com/poiesic/catalogsearch/storage/qdrant"
	"github.com/poiesic/catalogsearch/text"
)

// ErrMissingCredential is returned when an API key variable is unset.
var ErrMissingCredential = errors.New("missing credential")

// Engine wires a search.Service from configuration and owns every
// resource behind it.
type Engine struct {
	provider ai.AIProvider
	index    storage.VectorIndex
	store    *catalog.Store
	service  *search.Service
	backends []*badger.Backend
	logger   *slog.Logger
}

// EngineOption configures NewEngine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	getenv     func(string) string
	httpClient *http.Client
	normalizer *text.Normalizer
	searchOpts []search.Option
}

// WithGetenv replaces os.Getenv for credential lookup.
func WithGetenv(getenv func(string) string) EngineOption {
	return func(o *engineOptions) {
		o.getenv = getenv
	}
}

// WithHTTPClient sets the client used by remote vector indexes.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(o *engineOptions) {
		o.httpClient = client
	}
}

// WithNormalizer replaces the default English normalizer.
func WithNormalizer(n *text.Normalizer) EngineOption {
	return func(o *engineOptions) {
		o.normalizer = n
	}
}

// WithSearchOptions passes extra options to search.NewService.
func WithSearchOptions(opts ...search.Option) EngineOption {
	return func(o *engineOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// NewEngine validates cfg, probes the embedding model, provisions the
// vector index and returns an Engine whose service is Ready. Model
// failures wrap core.ErrModelUnavailable and index failures wrap
// core.ErrIndexProvisioning.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{getenv: os.Getenv}
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:  catalog.NewStore(),
		logger: slog.Default().With("component", "engine"),
	}

	if err := e.init(ctx, cfg, options); err != nil {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Error("error releasing resources after failed start", "err", closeErr)
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(ctx context.Context, cfg *config.Config, options *engineOptions) error {
	normalizer := options.normalizer
	if normalizer == nil {
		var err error
		if normalizer, err = text.Default(); err != nil {
			return err
		}
	}

	provider, err := newProvider(cfg, options.getenv)
	if err != nil {
		return err
	}
	e.provider = provider

	if err := ai.Probe(ctx, provider.Embedder(), cfg.Embedding.Dimension); err != nil {
		return err
	}
	e.logger.Info("embedding model available", "model", provider.Model(), "dimension", cfg.Embedding.Dimension)

	embedder := provider.Embedder()
	if cfg.Cache.Enabled {
		backend, err := e.openBackend(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("open embedding cache: %w", err)
		}
		model := fmt.Sprintf("%s/%d", provider.Model(), cfg.Embedding.Dimension)
		if embedder, err = ai.NewCachingEmbedder(embedder, badger.NewEmbeddingCache(backend), model); err != nil {
			return err
		}
	}

	inner, err := e.newIndex(cfg, options)
	if err != nil {
		return err
	}
	e.index, err = storage.NewResilientIndex(inner,
		storage.WithAttempts(cfg.Index.Attempts),
		storage.WithBaseDelay(cfg.Index.BaseDelay()),
		storage.WithTimeout(cfg.Index.Timeout()),
		storage.WithProvisionTimeout(cfg.Index.ProvisionTimeout()),
	)
	if err != nil {
		return err
	}

	searchOpts := append([]search.Option{
		search.WithIndexSpec(core.IndexSpec{
			Name:      cfg.Index.Name,
			Dimension: cfg.Embedding.Dimension,
			Metric:    core.MetricCosine,
		}),
		search.WithPoolSize(cfg.Ingest.Workers),
	}, options.searchOpts...)

	e.service, err = search.NewService(normalizer, embedder, e.index, e.store, searchOpts...)
	if err != nil {
		return err
	}
	return e.service.Start(ctx)
}

func newProvider(cfg *config.Config, getenv func(string) string) (ai.AIProvider, error) {
	aiConfig := ai.NewConfig(
		ai.WithProvider(cfg.Embedding.Provider),
		ai.WithEmbeddingHost(cfg.Embedding.Host),
		ai.WithEmbeddingModel(cfg.Embedding.Model),
		ai.WithDimension(cfg.Embedding.Dimension),
		ai.WithAPIKey(config.Secret(getenv, cfg.Embedding.APIKeyEnv)),
	)

	var (
		provider ai.AIProvider
		err      error
	)
	switch cfg.Embedding.Provider {
	case config.EmbeddingHashed:
		provider, err = hashed.NewProvider(aiConfig)
	default:
		provider, err = openai.NewProvider(aiConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}
	return provider, nil
}

func (e *Engine) newIndex(cfg *config.Config, options *engineOptions) (storage.VectorIndex, error) {
	apiKey := config.Secret(options.getenv, cfg.Index.APIKeyEnv)

	switch cfg.Index.Provider {
	case config.IndexBadger:
		backend, err := e.openBackend(cfg.Index.Path, badger.WithSyncWrites(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrIndexProvisioning, err)
		}
		return badger.NewIndex(backend), nil
	case config.IndexQdrant:
		return qdrant.NewIndex(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     apiKey,
			HTTPClient: options.httpClient,
		}), nil
	default:
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %w: set %s", core.ErrIndexProvisioning, ErrMissingCredential, cfg.Index.APIKeyEnv)
		}
		index, err := pinecone.NewIndex(pinecone.Config{
			APIKey:       apiKey,
			ControlURL:   cfg.Index.Pinecone.ControlURL,
			Cloud:        cfg.Index.Pinecone.Cloud,
			Region:       cfg.Index.Pinecone.Region,
			Namespace:    cfg.Index.Pinecone.Namespace,
			ReadyTimeout: cfg.Index.ProvisionTimeout(),
			HTTPClient:   options.httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrIndexProvisioning, err)
		}
		return index, nil
	}
}

func (e *Engine) openBackend(path string, opts ...badger.Option) (*badger.Backend, error) {
	backend, err := badger.OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	e.backends = append(e.backends, backend)
	return backend, nil
}

// Service returns the Ready search service.
func (e *Engine) Service() *search.Service {
	return e.service
}

// Store returns the catalog store the service reads from.
func (e *Engine) Store() *catalog.Store {
	return e.store
}

// Model names the embedding model behind the service.
func (e *Engine) Model() string {
	return e.provider.Model()
}

// Close releases the index, the provider and any local databases.
func (e *Engine) Close() error {
	var errs []error

	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}

	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}

	for i := len(e.backends) - 1; i >= 0; i-- {
		if err := e.backends[i].Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	e.backends = nil

	return errors.Join(errs...)
}
