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

// Package config loads catalogsearch settings from a YAML file, a .env
// file and CATALOGSEARCH_* environment variables, in that order of
// precedence from lowest to highest.
//
// Secrets never appear in the file. Sections that need a credential name
// the environment variable holding it (api_key_env) and the value is read
// at startup.
package config
