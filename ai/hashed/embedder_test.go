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

package hashed

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedText_Deterministic(t *testing.T) {
	e, err := NewEmbedder(core.DefaultDimension)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := e.EmbedText(ctx, "soft red wool scarf")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "soft red wool scarf")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, core.DefaultDimension)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbedText_EmptyTextIsValidVector(t *testing.T) {
	e, err := NewEmbedder(core.DefaultDimension)
	require.NoError(t, err)

	for _, in := range []string{"", "   "} {
		vec, err := e.EmbedText(context.Background(), in)
		require.NoError(t, err)
		require.NoError(t, core.ValidateVector(vec, core.DefaultDimension))
		assert.InDelta(t, 1.0, norm(vec), 1e-5)
	}
}

func TestEmbedText_SharedTokensScoreHigher(t *testing.T) {
	e, err := NewEmbedder(core.DefaultDimension)
	require.NoError(t, err)
	ctx := context.Background()

	query, _ := e.EmbedText(ctx, "warm winter scarf")
	redScarf, _ := e.EmbedText(ctx, "soft red wool scarf cold winter day")
	blueScarf, _ := e.EmbedText(ctx, "lightweight blue cotton scarf")
	wallet, _ := e.EmbedText(ctx, "slim leather wallet card slot")

	red := core.CosineSimilarity(query, redScarf)
	blue := core.CosineSimilarity(query, blueScarf)
	other := core.CosineSimilarity(query, wallet)

	assert.Greater(t, red, blue)
	assert.Greater(t, blue, other)
}

func TestEmbedTexts_MatchesEmbedText(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)
	ctx := context.Background()

	texts := []string{"alpha", "beta gamma", ""}
	batch, err := e.EmbedTexts(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.EmbedText(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbedText_CanceledContext(t *testing.T) {
	e, err := NewEmbedder(8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedText(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedder_InvalidDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.NewConfig(ai.WithProvider(ai.ProviderHashed), ai.WithDimension(32)))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, ai.ProviderHashed, p.Model())
	require.NoError(t, ai.Probe(context.Background(), p.Embedder(), 32))
}
