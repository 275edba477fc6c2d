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

// Package ai provides abstractions for the embedding services used by catalogsearch.
//
// The Embedder interface maps text to fixed-width vectors, and AIProvider
// owns an Embedder together with whatever client state it needs.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding endpoints via langchaingo
//   - ai/hashed: offline feature-hashing embedder, deterministic across runs
//   - ai/mock: test doubles with injectable behavior
//
// CachingEmbedder memoizes vectors in a storage.EmbeddingCache so repeated
// ingestion of unchanged descriptions does not hit the model again, and
// Probe checks at startup that a model answers with the expected width.
package ai
