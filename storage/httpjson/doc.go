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

// Package httpjson is the small JSON-over-HTTP client shared by the remote
// vector index backends. It applies auth headers, a client-side rate limit,
// and maps HTTP status codes onto storage errors so that callers wrapped in
// storage.ResilientIndex retry only what is worth retrying.
package httpjson
