package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// LoadFile reads a JSON array of messages from path.
func LoadFile(path string) ([]RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrInputNotFound, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgs []RawMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, path, err)
	}
	return msgs, nil
}

// WriteFile writes msgs to path as an indented JSON array that LoadFile accepts.
func WriteFile(path string, msgs []RawMessage) error {
	if msgs == nil {
		msgs = []RawMessage{}
	}
	data, err := json.MarshalIndent(msgs, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
