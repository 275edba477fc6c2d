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

// Package ingestion indexes catalog records on a bounded worker pool.
//
// For every row the pipeline normalizes the descriptive text, embeds it,
// upserts the vector into the index and only then stores the record in the
// catalog. A failing row is logged and counted in the Report; the rest of
// the batch carries on.
package ingestion
