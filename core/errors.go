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

import "errors"

// Pipeline failure classes. Callers match with errors.Is.
var (
	// ErrModelUnavailable indicates the embedding model could not be initialized.
	// Fatal at startup.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrIndexProvisioning indicates the vector index could not be created or
	// exists with an incompatible shape. Fatal at startup.
	ErrIndexProvisioning = errors.New("index provisioning failed")

	// ErrQuery indicates a similarity query failed after retries.
	ErrQuery = errors.New("index query failed")

	// ErrUpsert indicates an index write failed after retries.
	ErrUpsert = errors.New("index upsert failed")

	// ErrNotFound indicates no product exists with the requested ID.
	ErrNotFound = errors.New("product not found")

	// ErrNotReady indicates the service was used before Start completed.
	ErrNotReady = errors.New("service not ready")
)

// Domain validation errors
var (
	// ErrInvalidProductRecord indicates a ProductRecord failed validation.
	ErrInvalidProductRecord = errors.New("invalid product record")

	// ErrMissingProductID indicates the ProductID field is empty.
	ErrMissingProductID = errors.New("product id cannot be empty")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidVector indicates a vector holds NaN or infinite values.
	ErrInvalidVector = errors.New("vector contains non-finite values")

	// ErrInvalidIndexSpec indicates an IndexSpec failed validation.
	ErrInvalidIndexSpec = errors.New("invalid index spec")

	// ErrInvalidTopK indicates a negative result count.
	ErrInvalidTopK = errors.New("top-k must not be negative")
)
