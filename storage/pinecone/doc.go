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

// Package pinecone implements storage.VectorIndex on the Pinecone REST API.
//
// The control plane (api.pinecone.io) is used to look up or create a
// serverless index. Data-plane calls go to the host the control plane
// reports for that index. Vectors carry no metadata; records are resolved
// through the local catalog store by product ID.
package pinecone
