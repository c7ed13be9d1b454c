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

// Package search answers questions over the ingested corpus.
//
// The Searcher embeds the question, retrieves the closest chunks from the
// vector index, resolves each hit against the document store, assembles a
// bounded context block, and asks the language model for an answer grounded
// in that context.
//
// Vector hits whose document no longer exists are stale references left by
// the non-atomic ingestion path; they are skipped with a warning rather
// than failing the query. When nothing resolvable is retrieved, the query
// succeeds with the defined no-context answer instead of an error.
package search
