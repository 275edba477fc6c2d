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

package catalog

import (
	"log/slog"
	"strings"

	"github.com/poiesic/catalogsearch/core"
	"github.com/poiesic/catalogsearch/text"
)

// LoadReport counts what happened to each input row.
type LoadReport struct {
	Total      int
	Loaded     int
	Skipped    int
	Duplicates int
}

// Dedupe drops rows without an ID and collapses duplicates, keeping the
// last occurrence of each ID at the position of its first. The input slice
// is not modified.
func Dedupe(records []core.ProductRecord) ([]core.ProductRecord, LoadReport) {
	logger := slog.Default().With("component", "catalog")
	report := LoadReport{Total: len(records)}

	positions := make(map[string]int, len(records))
	deduped := make([]core.ProductRecord, 0, len(records))
	for row, record := range records {
		record.ProductID = strings.TrimSpace(record.ProductID)
		if err := core.ValidateProductRecord(&record); err != nil {
			logger.Warn("skipping row", "row", row, "err", err)
			report.Skipped++
			continue
		}

		if pos, ok := positions[record.ProductID]; ok {
			logger.Debug("duplicate product id, keeping last", "id", record.ProductID, "row", row)
			report.Duplicates++
			deduped[pos] = record
			continue
		}
		positions[record.ProductID] = len(deduped)
		deduped = append(deduped, record)
	}
	report.Loaded = len(deduped)
	return deduped, report
}

// Describe sets record.Description from its descriptive fields.
func Describe(record *core.ProductRecord, normalizer *text.Normalizer) {
	record.Description = normalizer.Normalize(record.DescriptiveFields()...)
}

// Prepare runs Dedupe and then Describe on each surviving record.
func Prepare(records []core.ProductRecord, normalizer *text.Normalizer) ([]core.ProductRecord, LoadReport) {
	prepared, report := Dedupe(records)
	for i := range prepared {
		Describe(&prepared[i], normalizer)
	}
	return prepared, report
}

// Load builds a Store from records in a single pass.
func Load(records []core.ProductRecord, normalizer *text.Normalizer) (*Store, LoadReport) {
	store := NewStore()
	prepared, report := Prepare(records, normalizer)
	for _, record := range prepared {
		// Prepare already validated every record.
		_ = store.Put(record)
	}
	return store, report
}
