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
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/catalog"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/ingestion"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/text"
)

// State is the lifecycle state of a Service.
type State int32

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats compares the index with the catalog.
type Stats struct {
	Indexed int
	Catalog int
}

// Service answers product searches against a vector index and a catalog store.
type Service struct {
	normalizer *text.Normalizer
	embedder   ai.Embedder
	index      storage.VectorIndex
	store      *catalog.Store

	spec          core.IndexSpec
	poolSize      int
	monitor       Monitor
	ingestMonitor ingestion.Monitor

	state   atomic.Int32
	startMu sync.Mutex
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithIndexSpec sets the index to provision on Start.
// Default is core.DefaultIndexSpec("products").
func WithIndexSpec(spec core.IndexSpec) Option {
	return func(s *Service) error {
		if err := core.ValidateIndexSpec(spec); err != nil {
			return err
		}
		s.spec = spec
		return nil
	}
}

// WithPoolSize sets the ingestion worker count.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		s.poolSize = max(size, 1)
		return nil
	}
}

// WithMonitor sets the monitor used when a search is not given its own.
func WithMonitor(monitor Monitor) Option {
	return func(s *Service) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithIngestMonitor sets the progress monitor for IngestCatalog.
func WithIngestMonitor(monitor ingestion.Monitor) Option {
	return func(s *Service) error {
		s.ingestMonitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates an Uninitialized service.
func NewService(
	normalizer *text.Normalizer,
	embedder ai.Embedder,
	index storage.VectorIndex,
	store *catalog.Store,
	opts ...Option,
) (*Service, error) {
	if normalizer == nil {
		return nil, ErrNormalizerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Service{
		normalizer: normalizer,
		embedder:   embedder,
		index:      index,
		store:      store,
		spec:       core.DefaultIndexSpec("products"),
		poolSize:   runtime.NumCPU(),
		monitor:    &noopMonitor{},
		logger:     slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// State reports the lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Start provisions the vector index. It is safe to call more than once;
// after the first success it does nothing. On failure the service stays
// Uninitialized and the error wraps core.ErrIndexProvisioning.
func (s *Service) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.State() == StateReady {
		return nil
	}

	if err := s.index.EnsureIndex(ctx, s.spec); err != nil {
		s.logger.Error("index provisioning failed", "index", s.spec.Name, "err", err)
		if !errors.Is(err, core.ErrIndexProvisioning) {
			err = fmt.Errorf("%w: %w", core.ErrIndexProvisioning, err)
		}
		return err
	}

	s.state.Store(int32(StateReady))
	s.logger.Info("search service ready", "index", s.spec.Name, "dimension", s.spec.Dimension)
	return nil
}

func (s *Service) ready() error {
	if s.State() != StateReady {
		return core.ErrNotReady
	}
	return nil
}

// IngestCatalog indexes records and adds each one to the catalog once its
// vector is stored. Row failures are in the report; the error return is
// reserved for core.ErrNotReady and context cancellation.
func (s *Service) IngestCatalog(ctx context.Context, records []core.ProductRecord) (*ingestion.Report, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	opts := []ingestion.Option{
		ingestion.WithPoolSize(s.poolSize),
		ingestion.WithLogger(s.logger.With("op", "ingest")),
	}
	if s.ingestMonitor != nil {
		opts = append(opts, ingestion.WithMonitor(s.ingestMonitor))
	}

	pipeline, err := ingestion.NewPipeline(s.normalizer, s.embedder, s.index, s.store, opts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	return pipeline.Run(ctx, records)
}

// LoadCatalog fills the catalog store without touching the index, for an
// index that was populated by an earlier run.
func (s *Service) LoadCatalog(records []core.ProductRecord) (catalog.LoadReport, error) {
	if err := s.ready(); err != nil {
		return catalog.LoadReport{}, err
	}

	prepared, report := catalog.Prepare(records, s.normalizer)
	for _, record := range prepared {
		if err := s.store.Put(record); err != nil {
			return report, err
		}
	}
	s.logger.Info("catalog loaded", "records", report.Loaded, "skipped", report.Skipped)
	return report, nil
}

// Search returns up to topK products most similar to query. Zero topK
// means core.DefaultTopK and a negative one is core.ErrInvalidTopK.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]core.ProductSummary, error) {
	return s.SearchWithMonitor(ctx, query, topK, nil)
}

// SearchWithMonitor is Search with a per-call monitor. A nil monitor uses
// the service default.
func (s *Service) SearchWithMonitor(ctx context.Context, query string, topK int, monitor Monitor) ([]core.ProductSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = s.monitor
	}
	switch {
	case topK < 0:
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidTopK, topK)
	case topK == 0:
		topK = core.DefaultTopK
	}

	normalized := s.normalizer.Normalize(query)
	monitor.SearchStarted(query, normalized)

	results, err := s.search(ctx, normalized, topK, monitor)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		monitor.SearchFailed(query, err)
		return nil, err
	}

	monitor.SearchCompleted(query, results)
	return results, nil
}

// tieWindow is how many matches past topK are fetched for tie-breaking.
const tieWindow = 4

func (s *Service) search(ctx context.Context, normalized string, topK int, monitor Monitor) ([]core.ProductSummary, error) {
	embedding, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrQuery, err)
	}

	// Over-fetch so equal scores at the cut are ordered by ID rather than
	// by provider order. Ties wider than tieWindow still follow the index.
	matches, err := s.index.Query(ctx, embedding, topK+tieWindow)
	if err != nil {
		if !errors.Is(err, core.ErrQuery) {
			err = fmt.Errorf("%w: %w", core.ErrQuery, err)
		}
		return nil, err
	}

	matches = slices.Clone(matches)
	slices.SortStableFunc(matches, func(a, b core.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	monitor.AfterIndexQuery(matches)

	results := make([]core.ProductSummary, 0, len(matches))
	for _, match := range matches {
		record, err := s.store.Get(match.ProductID)
		if err != nil {
			s.logger.Debug("dropping match missing from catalog", "id", match.ProductID)
			continue
		}
		results = append(results, record.Summary(match.Score))
	}
	return results, nil
}

// Describe returns the full record for id, or core.ErrNotFound.
func (s *Service) Describe(ctx context.Context, id string) (core.ProductRecord, error) {
	if err := s.ready(); err != nil {
		return core.ProductRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.ProductRecord{}, err
	}
	return s.store.Get(strings.TrimSpace(id))
}

// Stats reports the index entry count next to the catalog size.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := s.ready(); err != nil {
		return Stats{}, err
	}
	indexed, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Indexed: indexed, Catalog: s.store.Len()}, nil
}
