// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Enabled bool
	// BaseURL overrides the API endpoint; empty uses the public API.
	BaseURL string
}

// Gemini generates JSON through the Google Gen AI SDK.
type Gemini struct {
	cfg GeminiConfig
}

// NewGemini creates a Gemini provider. No network call is made until Generate.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	return &Gemini{cfg: cfg}
}

func (g *Gemini) ID() string { return ProviderGemini }

func (g *Gemini) Available() bool { return g.cfg.Enabled && g.cfg.APIKey != "" }

// Generate implements Provider.
func (g *Gemini) Generate(ctx context.Context, p Prompt) (json.RawMessage, error) {
	cc := &genai.ClientConfig{
		APIKey:  g.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(p.User), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return ExtractJSON(resp.Text())
}
