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


// Package storage provides the storage abstraction layer for chatrag.
//
// This package defines repository interfaces that decouple the vector store
// from ingestion and retrieval. Three backends implement them:
//
//   - badger: embedded BadgerDB store with a brute-force nearest-neighbor scan
//   - firestore: Cloud Firestore collection queried with FindNearest
//   - postgres: PostgreSQL with the pgvector extension
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	repo, err := badger.NewDocumentRepository(backend) // returns storage.DocumentRepository
//
// Internal package constructors (newDocumentRepository, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	repo, err := badger.NewDocumentRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, checkpoints, backend, err := badger.NewMemoryRepositories()
//
// # Documents
//
// A StoredDocument is keyed by its deterministic ID. Upsert always replaces
// the whole document; there are no partial updates and no multi-document
// transactions.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
