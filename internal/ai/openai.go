// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Enabled bool
	// BaseURL overrides the API endpoint; empty uses the public API.
	BaseURL string
}

// OpenAI generates JSON through the chat completions API.
type OpenAI struct {
	cfg OpenAIConfig
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return &OpenAI{cfg: cfg}
}

func (o *OpenAI) ID() string { return ProviderOpenAI }

func (o *OpenAI) Available() bool { return o.cfg.Enabled && o.cfg.APIKey != "" }

// Generate implements Provider. The SDK's own retries are disabled; the
// dispatcher moves on to the next provider instead.
func (o *OpenAI) Generate(ctx context.Context, p Prompt) (json.RawMessage, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(o.cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if o.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	messages := []openai.ChatCompletionMessageParamUnion{}
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.User))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.cfg.Model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedOutput)
	}
	return ExtractJSON(resp.Choices[0].Message.Content)
}
