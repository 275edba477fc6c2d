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
	"errors"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/poiesic/catalogsearch/ai"
	"github.com/poiesic/catalogsearch/core"
)

// ErrInvalidDimension is returned for a non-positive vector width.
var ErrInvalidDimension = errors.New("dimension must be positive")

// Embedder maps each whitespace-separated token to a signed bucket of a
// fixed-width vector and L2-normalizes the sum. Texts sharing tokens score a
// positive cosine; texts sharing none score zero unless buckets collide.
type Embedder struct {
	dim    int
	logger *slog.Logger
}

func newEmbedder(dim int) (*Embedder, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Embedder{
		dim:    dim,
		logger: slog.Default().With("component", "hashed-embedder"),
	}, nil
}

// NewEmbedder creates a hashing embedder producing dim-wide vectors.
func NewEmbedder(dim int) (ai.Embedder, error) {
	return newEmbedder(dim)
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float32 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		// The empty text embeds as the empty token.
		tokens = []string{""}
	}

	vec := make([]float32, e.dim)
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := sum % uint64(e.dim)
		if sum>>63 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}
	return core.NormalizeVector(vec)
}

// Provider serves a hashing Embedder.
type Provider struct {
	embedder *Embedder
}

// NewProvider creates a Provider from config. Only config.Dimension is used.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(config.Dimension)
	if err != nil {
		return nil, err
	}
	return &Provider{embedder: embedder}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Model() string {
	return ai.ProviderHashed
}

func (p *Provider) Close() error {
	return nil
}
