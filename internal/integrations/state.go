// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package integrations resolves third-party provider settings: the stored
// document, environment overrides and the secret-masked view shown to admins.
package integrations

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/ai"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/model"
)

// Slot names.
const (
	SlotGemini = "gemini"
	SlotOpenAI = "openai"
	SlotSMTP   = "smtp"
	SlotR2     = "r2"
)

// Slots lists every integration slot.
var Slots = []string{SlotGemini, SlotOpenAI, SlotSMTP, SlotR2}

// Slot statuses.
const (
	StatusConfigured   = "configured"
	StatusUnconfigured = "unconfigured"
	StatusError        = "error"
	StatusTesting      = "testing"
)

// DefaultSMTPPort is used when no port is stored.
const DefaultSMTPPort = 587

const maxFieldLen = 512

// Slot is one provider's settings.
type Slot[C any] struct {
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
	Config  C      `json:"config"`
}

// AIConfig configures a generative text provider.
type AIConfig struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// SMTPConfig configures outbound mail.
type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"fromEmail"`
	FromName  string `json:"fromName"`
	Secure    bool   `json:"secure"`
}

// R2Config configures Cloudflare R2 object storage.
type R2Config struct {
	AccountID       string `json:"accountId"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Bucket          string `json:"bucket"`
	PublicBaseURL   string `json:"publicBaseUrl"`
}

// State is the integrations document.
type State struct {
	Gemini Slot[AIConfig]   `json:"gemini"`
	OpenAI Slot[AIConfig]   `json:"openai"`
	SMTP   Slot[SMTPConfig] `json:"smtp"`
	R2     Slot[R2Config]   `json:"r2"`
}

// Kind stores the integrations document. Changes are audited per slot and
// are not versioned, so secrets never land in history rows.
var Kind = cms.Kind[State]{
	ID:          "integrations",
	Sections:    Slots,
	Sanitize:    Sanitize,
	AuditAction: model.AuditIntegrationsUpdate,
}

// Configured reports whether the slot named name has status configured.
func (s State) Configured(name string) bool {
	switch name {
	case SlotGemini:
		return s.Gemini.Status == StatusConfigured
	case SlotOpenAI:
		return s.OpenAI.Status == StatusConfigured
	case SlotSMTP:
		return s.SMTP.Status == StatusConfigured
	case SlotR2:
		return s.R2.Status == StatusConfigured
	default:
		return false
	}
}

// Sanitize merges raw onto the defaults and recomputes every slot status:
// configured iff all required fields are non-empty. Slots that are not
// configured are always disabled.
func Sanitize(raw []byte) State {
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		root = gjson.Result{}
	}

	var st State

	gemini := root.Get(SlotGemini)
	st.Gemini = finish(gemini, sanitizeAI(gemini.Get("config"), ai.DefaultGeminiModel), AIConfig.complete)

	openai := root.Get(SlotOpenAI)
	st.OpenAI = finish(openai, sanitizeAI(openai.Get("config"), ai.DefaultOpenAIModel), AIConfig.complete)

	smtp := root.Get(SlotSMTP)
	st.SMTP = finish(smtp, sanitizeSMTP(smtp.Get("config")), SMTPConfig.complete)

	r2 := root.Get(SlotR2)
	st.R2 = finish(r2, sanitizeR2(r2.Get("config")), R2Config.complete)

	return st
}

func finish[C any](v gjson.Result, cfg C, complete func(C) bool) Slot[C] {
	slot := Slot[C]{Config: cfg, Status: StatusUnconfigured}
	if complete(cfg) {
		slot.Status = StatusConfigured
		slot.Enabled = v.Get("enabled").Type == gjson.True
	}
	return slot
}

func (c AIConfig) complete() bool {
	return c.APIKey != "" && c.Model != ""
}

func (c SMTPConfig) complete() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.FromEmail != ""
}

func (c R2Config) complete() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// field trims a config value. Secrets are not HTML-stripped, only bounded.
func field(v gjson.Result) string {
	if v.Type != gjson.String && v.Type != gjson.Number {
		return ""
	}
	s := strings.TrimSpace(v.String())
	if utf8.RuneCountInString(s) > maxFieldLen {
		s = string([]rune(s)[:maxFieldLen])
	}
	return s
}

func sanitizeAI(v gjson.Result, defaultModel string) AIConfig {
	cfg := AIConfig{
		APIKey: field(v.Get("apiKey")),
		Model:  field(v.Get("model")),
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return cfg
}

func sanitizeSMTP(v gjson.Result) SMTPConfig {
	cfg := SMTPConfig{
		Host:      strings.ToLower(field(v.Get("host"))),
		Port:      DefaultSMTPPort,
		Username:  field(v.Get("username")),
		Password:  field(v.Get("password")),
		FromEmail: cms.Email(v.Get("fromEmail")),
		FromName:  cms.PlainText(v.Get("fromName"), 120),
		Secure:    v.Get("secure").Type == gjson.True,
	}
	if port := v.Get("port"); port.Type == gjson.Number || port.Type == gjson.String {
		if p := int(port.Int()); p > 0 && p <= 65535 {
			cfg.Port = p
		}
	}
	return cfg
}

func sanitizeR2(v gjson.Result) R2Config {
	cfg := R2Config{
		AccountID:       field(v.Get("accountId")),
		AccessKeyID:     field(v.Get("accessKeyId")),
		SecretAccessKey: field(v.Get("secretAccessKey")),
		Bucket:          field(v.Get("bucket")),
	}
	if u := cms.SafeURL(v.Get("publicBaseUrl")); strings.HasPrefix(strings.ToLower(u), "http") {
		cfg.PublicBaseURL = strings.TrimRight(u, "/")
	}
	return cfg
}
