// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package integrations

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/olegiv/sitecms-go/internal/config"
)

// MaskMarker appears in every masked secret.
const MaskMarker = "••••"

const fullMask = MaskMarker + MaskMarker

// secretPaths lists every secret field. Partial secrets reveal their first
// and last three characters.
var secretPaths = []struct {
	path    string
	partial bool
}{
	{SlotGemini + ".config.apiKey", true},
	{SlotOpenAI + ".config.apiKey", true},
	{SlotSMTP + ".config.password", false},
	{SlotR2 + ".config.accessKeyId", true},
	{SlotR2 + ".config.secretAccessKey", false},
}

// Environment holds server-side provider credentials that take precedence
// over stored settings.
type Environment struct {
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

// EnvironmentFromConfig extracts the override credentials from cfg.
func EnvironmentFromConfig(cfg *config.Config) Environment {
	return Environment{
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
	}
}

// Resolve layers env over stored and returns the effective state along with
// the slots that were overridden. stored is not modified.
func Resolve(stored State, env Environment) (State, []string) {
	eff := stored
	overrides := []string{}

	if env.GeminiAPIKey != "" {
		eff.Gemini = overrideAI(eff.Gemini, env.GeminiAPIKey, env.GeminiModel)
		overrides = append(overrides, SlotGemini)
	}
	if env.OpenAIAPIKey != "" {
		eff.OpenAI = overrideAI(eff.OpenAI, env.OpenAIAPIKey, env.OpenAIModel)
		overrides = append(overrides, SlotOpenAI)
	}
	return eff, overrides
}

func overrideAI(slot Slot[AIConfig], key, model string) Slot[AIConfig] {
	slot.Config.APIKey = key
	if model != "" {
		slot.Config.Model = model
	}
	slot.Enabled = true
	slot.Status = StatusConfigured
	return slot
}

// MaskSecret renders a secret for display. Empty secrets stay empty.
func MaskSecret(secret string, partial bool) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if !partial || len(runes) <= 6 {
		return fullMask
	}
	return string(runes[:3]) + fullMask + string(runes[len(runes)-3:])
}

// Mask returns a copy of st with every secret masked.
func Mask(st State) State {
	out := st
	out.Gemini.Config.APIKey = MaskSecret(st.Gemini.Config.APIKey, true)
	out.OpenAI.Config.APIKey = MaskSecret(st.OpenAI.Config.APIKey, true)
	out.SMTP.Config.Password = MaskSecret(st.SMTP.Config.Password, false)
	out.R2.Config.AccessKeyID = MaskSecret(st.R2.Config.AccessKeyID, true)
	out.R2.Config.SecretAccessKey = MaskSecret(st.R2.Config.SecretAccessKey, false)
	return out
}

// IsMasked reports whether s looks like a masked placeholder.
func IsMasked(s string) bool {
	return strings.Contains(s, MaskMarker)
}

// MergePreservingMaskedSecrets replaces masked secrets in a client update
// with the stored values they stand for. A masked value with no stored
// secret behind it is cleared rather than saved literally.
func MergePreservingMaskedSecrets(incoming []byte, stored State) ([]byte, error) {
	prev, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	out := incoming
	for _, sp := range secretPaths {
		v := gjson.GetBytes(out, sp.path)
		if v.Type != gjson.String || !IsMasked(v.Str) {
			continue
		}
		out, err = sjson.SetBytes(out, sp.path, gjson.GetBytes(prev, sp.path).String())
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
