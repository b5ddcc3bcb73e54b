// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ai dispatches JSON generation requests across the configured
// generative text providers.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Provider identifiers.
const (
	ProviderAuto   = "auto"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Dispatcher errors.
var (
	ErrNoProviderConfigured = errors.New("no AI provider configured")
	ErrMalformedOutput      = errors.New("malformed provider output")
)

// Prompt is a system instruction plus the user request.
type Prompt struct {
	System string
	User   string
}

// Provider generates a JSON document from a prompt.
type Provider interface {
	ID() string
	// Available reports whether the provider is enabled and has credentials.
	Available() bool
	Generate(ctx context.Context, p Prompt) (json.RawMessage, error)
}

// Attempt records one failed provider call.
type Attempt struct {
	Provider string
	Err      error
}

// AllProvidersFailedError is returned when every candidate provider failed.
type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	last := e.Last()
	if last == nil {
		return "all AI providers failed"
	}
	return fmt.Sprintf("all AI providers failed: %v", last)
}

// Last returns the error of the final attempt.
func (e *AllProvidersFailedError) Last() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

func (e *AllProvidersFailedError) Unwrap() error {
	return e.Last()
}

// Result is a successful generation.
type Result struct {
	Provider string
	Data     json.RawMessage
}

// Dispatcher tries providers in priority order.
type Dispatcher struct {
	providers []Provider
}

// NewDispatcher creates a Dispatcher. The order of providers is the "auto"
// priority order.
func NewDispatcher(providers ...Provider) *Dispatcher {
	return &Dispatcher{providers: providers}
}

// ValidPreference reports whether pref names a provider or "auto".
func ValidPreference(pref string) bool {
	switch pref {
	case ProviderAuto, ProviderGemini, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// Candidates returns the usable providers for a preference. An explicit
// provider yields at most that provider.
func (d *Dispatcher) Candidates(pref string) []Provider {
	var out []Provider
	for _, p := range d.providers {
		if !p.Available() {
			continue
		}
		if pref == ProviderAuto || pref == "" || p.ID() == pref {
			out = append(out, p)
		}
	}
	return out
}

// Generate calls each candidate once, in order, and returns the first success.
func (d *Dispatcher) Generate(ctx context.Context, pref string, prompt Prompt) (Result, error) {
	candidates := d.Candidates(pref)
	if len(candidates) == 0 {
		return Result{}, ErrNoProviderConfigured
	}

	failed := &AllProvidersFailedError{}
	for _, p := range candidates {
		data, err := p.Generate(ctx, prompt)
		if err == nil {
			return Result{Provider: p.ID(), Data: data}, nil
		}
		slog.Warn("AI provider attempt failed", "provider", p.ID(), "error", err)
		failed.Attempts = append(failed.Attempts, Attempt{Provider: p.ID(), Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return Result{}, failed
}

// ExtractJSON pulls a JSON object or array out of a model response that may
// be wrapped in markdown fences or surrounded by prose.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], "{[") {
			cleaned = cleaned[nl+1:]
		}
		cleaned = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cleaned), "```"))
	}

	if json.Valid([]byte(cleaned)) && (strings.HasPrefix(cleaned, "{") || strings.HasPrefix(cleaned, "[")) {
		return json.RawMessage(cleaned), nil
	}

	start := strings.IndexAny(cleaned, "{[")
	if start < 0 {
		return nil, fmt.Errorf("%w: no JSON found", ErrMalformedOutput)
	}
	closer := "}"
	if cleaned[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(cleaned, closer)
	if end <= start {
		return nil, fmt.Errorf("%w: unterminated JSON", ErrMalformedOutput)
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedOutput)
	}
	return json.RawMessage(candidate), nil
}
