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


// Package retrieval finds the stored messages nearest to a question.
//
// The Retriever embeds the query with the same embedding.Gateway used for
// ingestion and asks the DocumentRepository for the k nearest documents.
// It never returns a Go error: every outcome is a core.ContextBundle whose
// Status tells an empty store, an empty result and a failure apart.
package retrieval
