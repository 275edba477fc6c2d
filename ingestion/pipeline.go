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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/catalog"
	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/storage"
	"github.com/poiesic/catalogsearch/text"
)

// Pipeline indexes catalog rows concurrently.
type Pipeline struct {
	normalizer *text.Normalizer
	embedder   ai.Embedder
	index      storage.VectorIndex
	store      *catalog.Store
	pool       *ants.Pool
	monitor    Monitor
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithMonitor sets a progress monitor.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	normalizer *text.Normalizer,
	embedder ai.Embedder,
	index storage.VectorIndex,
	store *catalog.Store,
	opts ...Option,
) (*Pipeline, error) {
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

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		normalizer: normalizer,
		embedder:   embedder,
		index:      index,
		store:      store,
		pool:       pool,
		monitor:    noopMonitor{},
		logger:     slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Run indexes records and blocks until every dispatched row has finished.
// Row failures are collected in the report; the error return is reserved
// for context cancellation, in which case undispatched rows are left out.
func (p *Pipeline) Run(ctx context.Context, records []core.ProductRecord) (*Report, error) {
	rows, loadReport := catalog.Dedupe(records)
	report := &Report{
		Total:      loadReport.Total,
		Skipped:    loadReport.Skipped,
		Duplicates: loadReport.Duplicates,
	}

	p.logger.Info("ingesting catalog", "rows", len(rows), "skipped", report.Skipped, "duplicates", report.Duplicates)
	p.monitor.IngestStarted(len(rows))

	var wg sync.WaitGroup
	for _, record := range rows {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			err := p.ingestRow(ctx, record)
			p.complete(report, record.ProductID, err)
		})
		if submitErr != nil {
			wg.Done()
			p.complete(report, record.ProductID, submitErr)
		}
	}
	wg.Wait()

	p.monitor.IngestFinished(report)
	p.logger.Info("ingestion finished", "indexed", report.Indexed, "failed", report.Failed)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) complete(report *Report, productID string, err error) {
	if err != nil {
		p.logger.Warn("row failed", "id", productID, "err", err)
	}
	report.record(productID, err)
	p.monitor.RowCompleted(productID, err)
}

// ingestRow normalizes, embeds and upserts one record, then stores it.
func (p *Pipeline) ingestRow(ctx context.Context, record core.ProductRecord) error {
	catalog.Describe(&record, p.normalizer)

	vector, err := p.embedder.EmbedText(ctx, record.Description)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	if err := p.index.Upsert(ctx, core.IndexEntry{ProductID: record.ProductID, Vector: vector}); err != nil {
		return err
	}

	return p.store.Put(record)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
