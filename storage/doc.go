// Copyright 2025 The neuraldocs Authors
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

// Package storage provides the storage abstraction layer for neuraldocs.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// Three repositories cover the persistent state of the system:
//
//   - DocumentRepository: structured articles keyed by URL-derived ID
//   - VectorRepository: chunk embeddings with cosine-distance search
//   - JobRepository: ingestion job state for at-least-once scheduling
//
// Constructors in backend packages return these interfaces rather than
// concrete types so callers never couple to a specific backend.
package storage
