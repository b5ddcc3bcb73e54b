// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package integrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/sitecms-go/internal/ai"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/mail"
	"github.com/olegiv/sitecms-go/internal/storage"
)

// ErrUnknownSlot is returned for a provider name outside Slots.
var ErrUnknownSlot = errors.New("unknown integration")

// testPrompt is the smallest generation that proves a key works.
var testPrompt = ai.Prompt{
	System: "Reply with JSON only.",
	User:   `Return {"ok":true}`,
}

// View is the admin-facing rendering of the integrations document.
type View struct {
	Integrations State     `json:"integrations"`
	EnvOverrides []string  `json:"envOverrides"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TestResult is the outcome of a live connection check.
type TestResult struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Service reads, writes and tests integration settings.
type Service struct {
	store *cms.Store[State]
	env   Environment

	// checks run one live request per slot; replaced in tests.
	checks map[string]func(ctx context.Context, st State) error
}

// NewService creates a Service over the integrations snapshot.
func NewService(db *sql.DB, env Environment) *Service {
	s := &Service{
		store: cms.NewStore(db, Kind),
		env:   env,
	}
	s.checks = map[string]func(context.Context, State) error{
		SlotGemini: checkProvider(SlotGemini),
		SlotOpenAI: checkProvider(SlotOpenAI),
		SlotSMTP:   checkSMTP,
		SlotR2:     checkR2,
	}
	return s
}

// Stored returns the persisted settings without environment overrides.
func (s *Service) Stored(ctx context.Context) (State, error) {
	snap, err := s.store.Read(ctx)
	if err != nil {
		return State{}, err
	}
	return snap.Data, nil
}

// Effective returns the settings every provider call must use, plus the
// slots that the environment overrides.
func (s *Service) Effective(ctx context.Context) (State, []string, error) {
	stored, err := s.Stored(ctx)
	if err != nil {
		return State{}, nil, err
	}
	eff, overrides := Resolve(stored, s.env)
	return eff, overrides, nil
}

// View returns the masked effective settings.
func (s *Service) View(ctx context.Context) (View, error) {
	snap, err := s.store.Read(ctx)
	if err != nil {
		return View{}, err
	}
	eff, overrides := Resolve(snap.Data, s.env)
	return View{Integrations: Mask(eff), EnvOverrides: overrides, UpdatedAt: snap.UpdatedAt}, nil
}

// Update stores a client-submitted document. Masked secrets in raw keep the
// stored values they stand for. It returns the new masked view and the slots
// that changed.
func (s *Service) Update(ctx context.Context, raw []byte, actor cms.Actor) (View, []string, error) {
	stored, err := s.Stored(ctx)
	if err != nil {
		return View{}, nil, err
	}

	merged, err := MergePreservingMaskedSecrets(raw, stored)
	if err != nil {
		return View{}, nil, fmt.Errorf("merging masked secrets: %w", err)
	}

	res, err := s.store.Write(ctx, merged, actor, "")
	if err != nil {
		return View{}, nil, err
	}

	eff, overrides := Resolve(res.Data, s.env)
	return View{Integrations: Mask(eff), EnvOverrides: overrides, UpdatedAt: res.UpdatedAt}, res.Changed, nil
}

// Test performs one live check against the effective settings of slot.
// Provider failures are reported in the result, not as an error.
func (s *Service) Test(ctx context.Context, slot string) (TestResult, error) {
	check, ok := s.checks[slot]
	if !ok {
		return TestResult{}, ErrUnknownSlot
	}

	eff, _, err := s.Effective(ctx)
	if err != nil {
		return TestResult{}, err
	}

	res := TestResult{Provider: slot, Status: StatusError}
	if !eff.Configured(slot) {
		res.Message = slot + " is not configured"
		return res, nil
	}
	if err := check(ctx, eff); err != nil {
		res.Message = err.Error()
		return res, nil
	}
	res.Status = StatusConfigured
	res.Message = "Connection succeeded"
	return res, nil
}

// Providers builds the AI providers for st in "auto" priority order.
func Providers(st State) []ai.Provider {
	return []ai.Provider{
		ai.NewGemini(ai.GeminiConfig{
			APIKey:  st.Gemini.Config.APIKey,
			Model:   st.Gemini.Config.Model,
			Enabled: st.Gemini.Enabled,
		}),
		ai.NewOpenAI(ai.OpenAIConfig{
			APIKey:  st.OpenAI.Config.APIKey,
			Model:   st.OpenAI.Config.Model,
			Enabled: st.OpenAI.Enabled,
		}),
	}
}

// MailConfig converts the smtp slot for the mail package. A disabled slot
// yields an unconfigured Config.
func MailConfig(st State) mail.Config {
	if !st.SMTP.Enabled {
		return mail.Config{}
	}
	c := st.SMTP.Config
	return mail.Config{
		Host:      c.Host,
		Port:      c.Port,
		Username:  c.Username,
		Password:  c.Password,
		FromEmail: c.FromEmail,
		FromName:  c.FromName,
		Secure:    c.Secure,
	}
}

// StorageConfig converts the r2 slot for the storage package. A disabled
// slot yields an unconfigured R2Config.
func StorageConfig(st State) storage.R2Config {
	if !st.R2.Enabled {
		return storage.R2Config{}
	}
	c := st.R2.Config
	return storage.R2Config{
		AccountID:       c.AccountID,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Bucket:          c.Bucket,
		PublicBaseURL:   c.PublicBaseURL,
	}
}

func checkProvider(id string) func(context.Context, State) error {
	return func(ctx context.Context, st State) error {
		// Test ignores the enabled flag so a key can be checked before it is switched on.
		st.Gemini.Enabled = true
		st.OpenAI.Enabled = true
		d := ai.NewDispatcher(Providers(st)...)
		res, err := d.Generate(ctx, id, testPrompt)
		if err != nil {
			return err
		}
		if !json.Valid(res.Data) {
			return ai.ErrMalformedOutput
		}
		return nil
	}
}

func checkSMTP(ctx context.Context, st State) error {
	st.SMTP.Enabled = true
	return mail.NewSMTPMailer(MailConfig(st)).Check(ctx)
}

func checkR2(ctx context.Context, st State) error {
	st.R2.Enabled = true
	r2, err := storage.NewR2(StorageConfig(st))
	if err != nil {
		return err
	}
	return r2.Check(ctx)
}
