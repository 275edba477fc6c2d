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
	"errors"
	"fmt"
	"sync"
)

// RowFailure records why a row was not indexed.
type RowFailure struct {
	ProductID string
	Err       error
}

// Report summarizes one ingestion run. Indexed + Failed equals the number
// of rows dispatched; Skipped and Duplicates were dropped before dispatch.
type Report struct {
	Total      int
	Indexed    int
	Skipped    int
	Duplicates int
	Failed     int
	Failures   []RowFailure

	mu sync.Mutex
}

func (r *Report) record(productID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Failed++
		r.Failures = append(r.Failures, RowFailure{ProductID: productID, Err: err})
		return
	}
	r.Indexed++
}

// Err joins the row failures, or returns nil when every row succeeded.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("product %s: %w", f.ProductID, f.Err)
	}
	return errors.Join(errs...)
}

func (r *Report) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%d rows: %d indexed, %d failed, %d skipped, %d duplicates",
		r.Total, r.Indexed, r.Failed, r.Skipped, r.Duplicates)
}
