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

// Package catalog holds the in-memory product catalog and reads it from
// CSV.
//
// Store maps product IDs to records and is safe for concurrent use. Prepare
// and Load turn raw rows into records ready for indexing: rows without an
// ID are skipped, duplicates keep the last occurrence, and each record's
// Description is filled from its descriptive fields through a
// text.Normalizer.
package catalog
