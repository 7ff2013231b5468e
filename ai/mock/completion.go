package mock

import (
	"context"
	"sync"
)

// MockCompletionModel is a test double for ai.CompletionModel.
type MockCompletionModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Complete returns Response.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Response is returned when CompleteFunc is nil.
	Response string

	mu      sync.Mutex
	prompts []string
}

// NewMockCompletionModel creates a mock completion model that answers with a fixed response.
func NewMockCompletionModel() *MockCompletionModel {
	return &MockCompletionModel{
		Response: "- Answer: mock answer\n- Source Messages: mock source",
	}
}

// Complete records the prompt and returns the configured response.
func (m *MockCompletionModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return m.Response, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompletionModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockCompletionModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Reset clears recorded prompts and the custom function.
func (m *MockCompletionModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.CompleteFunc = nil
}
