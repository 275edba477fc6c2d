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

// Package search provides natural-language product search over an indexed
// catalog.
//
// A Service owns the query path and the ingestion entry point. It starts
// Uninitialized; Start provisions the vector index and moves it to Ready.
// Every other operation returns core.ErrNotReady until then.
//
// Queries pass through the same text.Normalizer as product descriptions
// before they are embedded, so both sides of the cosine comparison see the
// same vocabulary. Results are ordered by score, highest first, with ties
// broken by product ID. An index failure is reported as core.ErrQuery and
// is never confused with an empty result.
package search
