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

// Package storage defines the persistence abstractions used by catalog search.
//
// Two interfaces matter:
//
//   - VectorIndex: a named, fixed-dimension cosine index keyed by product ID.
//     Implementations live in storage/badger (embedded), storage/pinecone and
//     storage/qdrant (remote services).
//   - EmbeddingCache: a content-addressed store of embedding vectors keyed by
//     core.ID, used to skip re-embedding unchanged text.
//
// ResilientIndex wraps any VectorIndex with per-call timeouts and retries.
// Errors marked with backoff.Permanent are not retried. After retries are
// exhausted the error is classified as core.ErrIndexProvisioning,
// core.ErrUpsert or core.ErrQuery depending on the failing call.
//
// The serialization helpers encode vectors, index entries and index specs
// with mus-go for the embedded backend.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
