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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProductRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *ProductRecord
		wantErr error
	}{
		{"valid", &ProductRecord{ProductID: "abc"}, nil},
		{"nil record", nil, ErrInvalidProductRecord},
		{"empty id", &ProductRecord{}, ErrMissingProductID},
		{"whitespace id", &ProductRecord{ProductID: "  \t"}, ErrMissingProductID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProductRecord(tt.record)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidProductRecord)
		})
	}
}

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float32
		dim     int
		wantErr error
	}{
		{"valid", []float32{0.1, 0.2}, 2, nil},
		{"too short", []float32{0.1}, 2, ErrDimensionMismatch},
		{"too long", []float32{0.1, 0.2, 0.3}, 2, ErrDimensionMismatch},
		{"nan", []float32{float32(math.NaN()), 0}, 2, ErrInvalidVector},
		{"inf", []float32{0, float32(math.Inf(1))}, 2, ErrInvalidVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVector(tt.vec, tt.dim)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateIndexSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    IndexSpec
		wantErr bool
	}{
		{"default", DefaultIndexSpec("products"), false},
		{"empty name", IndexSpec{Dimension: 384, Metric: MetricCosine}, true},
		{"zero dimension", IndexSpec{Name: "x", Metric: MetricCosine}, true},
		{"unknown metric", IndexSpec{Name: "x", Dimension: 3, Metric: "dotproduct"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexSpec(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIndexSpec)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
