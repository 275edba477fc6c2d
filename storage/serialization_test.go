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

package storage

import (
	"math"
	"testing"

	"github.com/poiesic/catalogsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalIndexEntry(t *testing.T) {
	entry := &core.IndexEntry{
		ProductID: "4c69b61db1fc16e7013b43fc926e502d",
		Vector:    []float32{0.5, -0.25, 0, float32(math.SmallestNonzeroFloat32), 1},
	}

	decoded, err := UnmarshalIndexEntry(MarshalIndexEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestMarshalVector_FixedWidthComponents(t *testing.T) {
	vec := make([]float32, core.DefaultDimension)
	data := MarshalVector(vec)
	// 384 needs a two-byte varint length prefix
	assert.Len(t, data, 2+core.DefaultDimension*4)

	decoded, err := UnmarshalVector(data)
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestMarshalVector_Empty(t *testing.T) {
	decoded, err := UnmarshalVector(MarshalVector(nil))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestUnmarshalVector_Invalid(t *testing.T) {
	full := MarshalVector([]float32{1, 2, 3})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrSerializationFailed},
		{"truncated components", full[:len(full)-2], ErrTruncatedData},
		{"oversized length prefix", []byte{0xff, 0xff, 0xff, 0x0f}, ErrTruncatedData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalVector(tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMarshalUnmarshalIndexSpec(t *testing.T) {
	spec := core.DefaultIndexSpec("products")

	decoded, err := UnmarshalIndexSpec(MarshalIndexSpec(&spec))
	require.NoError(t, err)
	assert.Equal(t, spec, *decoded)
}

func TestUnmarshalIndexEntry_Invalid(t *testing.T) {
	_, err := UnmarshalIndexEntry([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
