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

package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/catalogsearch/core"
)

const probeText = "product catalog search"

// Probe embeds a fixed phrase and checks the result has dim finite
// components. Any failure is reported as core.ErrModelUnavailable.
func Probe(ctx context.Context, e Embedder, dim int) error {
	if e == nil {
		return fmt.Errorf("%w: embedder is nil", core.ErrModelUnavailable)
	}
	vec, err := e.EmbedText(ctx, probeText)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}
	if err := core.ValidateVector(vec, dim); err != nil {
		return fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}
	return nil
}
