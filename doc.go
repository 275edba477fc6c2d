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

// Package catalogsearch provides natural-language search over a product
// catalog.
//
// Product descriptions are normalized (lower-cased, stop words removed,
// lemmatized), embedded into 384-dimensional vectors, and stored in a
// cosine vector index. Queries go through the same normalizer and
// embedder, and the nearest products are joined back to the catalog.
//
// # Quick Start
//
//	cfg, err := config.Load("catalogsearch.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := catalogsearch.NewEngine(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	records, _, err := catalog.ReadCSVFile(cfg.Ingest.Catalog)
//	report, err := engine.Service().IngestCatalog(ctx, records)
//	results, err := engine.Service().Search(ctx, "warm winter scarf", 5)
//
// # Packages
//
//   - text: query and description normalization
//   - ai: embedding interfaces, OpenAI-compatible and hashing embedders, cache
//   - storage: vector index abstraction with Pinecone, Qdrant and Badger backends
//   - catalog: CSV reading and the in-memory product store
//   - ingestion: concurrent indexing pipeline
//   - search: the Uninitialized to Ready search service
//   - config: YAML, .env and environment configuration
//   - shell: the interactive prompt
//
// Credentials are read from environment variables named in the
// configuration and never stored in files or source.
package catalogsearch
