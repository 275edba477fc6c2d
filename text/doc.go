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

// Package text normalizes free-form product text before embedding.
//
// Normalization lower-cases the input, splits it on anything that is not a
// Unicode letter or digit, drops English stop words, and reduces each
// remaining token to its dictionary base form. The English dictionary is
// loaded once per process and shared by every Normalizer that uses it.
package text
