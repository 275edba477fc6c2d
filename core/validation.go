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

package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateProductRecord validates a ProductRecord according to domain rules.
//
// Validation rules:
//   - ProductID must not be empty or whitespace
//
// NOT validated (optional catalog columns default to ""):
//   - every other field
func ValidateProductRecord(record *ProductRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidProductRecord)
	}

	if strings.TrimSpace(record.ProductID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProductRecord, ErrMissingProductID)
	}

	return nil
}

// ValidateVector checks that vec has exactly dim finite components.
func ValidateVector(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// ValidateIndexSpec validates an IndexSpec.
func ValidateIndexSpec(spec IndexSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidIndexSpec)
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidIndexSpec, spec.Dimension)
	}
	if spec.Metric != MetricCosine {
		return fmt.Errorf("%w: unsupported metric %q", ErrInvalidIndexSpec, spec.Metric)
	}
	return nil
}
