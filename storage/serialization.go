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
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/catalogsearch/core"
)

// float32Size is the fixed width of raw.Float32.
const float32Size = 4

func vectorSize(vec []float32) int {
	return varint.Uint64.Size(uint64(len(vec))) + len(vec)*float32Size
}

func marshalVector(vec []float32, bs []byte) int {
	n := varint.Uint64.Marshal(uint64(len(vec)), bs)
	for _, v := range vec {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	if length > uint64((len(bs)-n)/float32Size) {
		return nil, n, fmt.Errorf("%w: vector of %d components", ErrTruncatedData, length)
	}
	vec := make([]float32, length)
	for i := range vec {
		v, m, err := raw.Float32.Unmarshal(bs[n:])
		if err != nil {
			return nil, n, fmt.Errorf("%w: component %d: %w", ErrSerializationFailed, i, err)
		}
		vec[i] = v
		n += m
	}
	return vec, n, nil
}

// MarshalVector encodes a vector as a varint length followed by raw float32s.
func MarshalVector(vec []float32) []byte {
	buf := make([]byte, vectorSize(vec))
	marshalVector(vec, buf)
	return buf
}

// UnmarshalVector decodes a vector written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	vec, _, err := unmarshalVector(data)
	return vec, err
}

// MarshalIndexEntry encodes the product ID followed by the vector.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	buf := make([]byte, ord.String.Size(entry.ProductID)+vectorSize(entry.Vector))
	n := ord.String.Marshal(entry.ProductID, buf)
	marshalVector(entry.Vector, buf[n:])
	return buf
}

// UnmarshalIndexEntry decodes an entry written by MarshalIndexEntry.
func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: product id: %w", ErrSerializationFailed, err)
	}
	vec, _, err := unmarshalVector(data[n:])
	if err != nil {
		return nil, err
	}
	return &core.IndexEntry{ProductID: id, Vector: vec}, nil
}

// MarshalIndexSpec encodes an IndexSpec for persistence next to the vectors.
func MarshalIndexSpec(spec *core.IndexSpec) []byte {
	metric := string(spec.Metric)
	size := ord.String.Size(spec.Name) +
		varint.Uint64.Size(uint64(spec.Dimension)) +
		ord.String.Size(metric)
	buf := make([]byte, size)
	n := ord.String.Marshal(spec.Name, buf)
	n += varint.Uint64.Marshal(uint64(spec.Dimension), buf[n:])
	ord.String.Marshal(metric, buf[n:])
	return buf
}

// UnmarshalIndexSpec decodes a spec written by MarshalIndexSpec.
func UnmarshalIndexSpec(data []byte) (*core.IndexSpec, error) {
	name, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: index name: %w", ErrSerializationFailed, err)
	}
	dim, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index dimension: %w", ErrSerializationFailed, err)
	}
	n += m
	metric, _, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index metric: %w", ErrSerializationFailed, err)
	}
	return &core.IndexSpec{Name: name, Dimension: int(dim), Metric: core.Metric(metric)}, nil
}
