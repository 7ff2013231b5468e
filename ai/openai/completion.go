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


package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/chatrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompletionModel implements ai.CompletionModel using OpenAI-compatible chat APIs.
type CompletionModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newCompletionModel is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompletionModel(config *ai.Config) (*CompletionModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &CompletionModel{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-completion"),
	}, nil
}

// NewCompletionModel creates a new completion model using the provided configuration.
//
// Returns ai.CompletionModel interface to enforce abstraction.
func NewCompletionModel(config *ai.Config) (ai.CompletionModel, error) {
	return newCompletionModel(config)
}

// Complete sends prompt as a single human message and returns the first choice.
func (c *CompletionModel) Complete(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(c.temperature))
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Warn("no choices returned from model")
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
