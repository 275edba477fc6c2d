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

package search

import "github.com/poiesic/catalogsearch/core"

// Monitor receives callbacks at each stage of a search.
type Monitor interface {
	SearchStarted(query, normalized string)
	AfterIndexQuery(matches []core.Match)
	SearchCompleted(query string, results []core.ProductSummary)
	SearchFailed(query string, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) SearchStarted(_, _ string)                         {}
func (n *noopMonitor) AfterIndexQuery(_ []core.Match)                    {}
func (n *noopMonitor) SearchCompleted(_ string, _ []core.ProductSummary) {}
func (n *noopMonitor) SearchFailed(_ string, _ error)                    {}
