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


// Package ai provides abstractions for the AI services used by neuraldocs.
//
// This package defines interfaces for text embeddings, article structuring,
// and answer generation. The ingestion and query pipelines depend on these
// abstractions rather than concrete implementations.
//
// The package is designed around four interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Structurer: Turns clean article text into a structured record
//   - Answerer: Generates answers grounded in retrieved context
//   - Provider: Aggregates the services for convenient initialization
//
// Two implementation sub-packages exist:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types to enforce abstraction. Mock constructors return concrete
// types so tests can inject behavior and assert call counts.
package ai
