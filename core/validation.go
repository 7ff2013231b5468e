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

import "fmt"

// ValidateStoredDocument validates a StoredDocument according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Embedding must have exactly dims components
//
// NOT validated:
//   - Content (empty content is a valid message)
//   - URI (may be empty when it could not be derived)
//   - Metadata (free-form)
func ValidateStoredDocument(doc *StoredDocument, dims int) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if err := ValidateDimensions(doc.Embedding, dims); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateDimensions checks that v has exactly dims components.
func ValidateDimensions(v []float32, dims int) error {
	if dims <= 0 {
		return ErrInvalidDimensions
	}
	if len(v) != dims {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dims, len(v))
	}
	return nil
}
