// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/mail"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// Lead validation errors. Each names the offending field.
var (
	ErrLeadName    = errors.New("name is required")
	ErrLeadEmail   = errors.New("a valid email is required")
	ErrLeadMessage = errors.New("message is required")
)

// Lead field limits.
const (
	maxLeadName    = 120
	maxLeadCompany = 160
	maxLeadPhone   = 40
	maxLeadMessage = 5000
	maxLeadSource  = 80
)

// LeadInput is a contact form submission.
type LeadInput struct {
	Name      string
	Email     string
	Company   string
	Phone     string
	Message   string
	Source    string
	IPAddress string
}

// LeadService stores contact form submissions.
type LeadService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewLeadService creates a LeadService.
func NewLeadService(db *sql.DB) *LeadService {
	return &LeadService{
		queries: store.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a lead. Text fields are stripped of markup
// and clamped.
func (s *LeadService) Create(ctx context.Context, in LeadInput) (store.Lead, error) {
	params := store.CreateLeadParams{
		Name:      cms.CleanText(in.Name, maxLeadName),
		Email:     cms.NormalizeEmail(in.Email),
		Company:   cms.CleanText(in.Company, maxLeadCompany),
		Phone:     cms.CleanText(in.Phone, maxLeadPhone),
		Message:   cms.CleanText(in.Message, maxLeadMessage),
		Source:    cms.CleanText(in.Source, maxLeadSource),
		IpAddress: in.IPAddress,
		CreatedAt: s.now(),
	}
	switch {
	case params.Name == "":
		return store.Lead{}, ErrLeadName
	case params.Email == "":
		return store.Lead{}, ErrLeadEmail
	case params.Message == "":
		return store.Lead{}, ErrLeadMessage
	}

	lead, err := s.queries.CreateLead(ctx, params)
	if err != nil {
		return store.Lead{}, fmt.Errorf("creating lead: %w", err)
	}
	return lead, nil
}

// List returns leads, newest first.
func (s *LeadService) List(ctx context.Context, limit, offset int) ([]store.Lead, error) {
	return s.queries.ListLeads(ctx, store.ListLeadsParams{
		Limit:  int64(util.ClampInt(limit, 50, 1, 200)),
		Offset: int64(max(offset, 0)),
	})
}

// NotifyLead e-mails a new lead to the site owner.
func NotifyLead(ctx context.Context, sender mail.Sender, to string, lead store.Lead) error {
	rows := [][2]string{
		{"Name", lead.Name},
		{"Email", lead.Email},
		{"Company", lead.Company},
		{"Phone", lead.Phone},
	}

	var text, body strings.Builder
	body.WriteString("<h2>New contact request</h2><table>")
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(&text, "%s: %s\n", r[0], r[1])
		fmt.Fprintf(&body, "<tr><th align=\"left\">%s</th><td>%s</td></tr>", r[0], html.EscapeString(r[1]))
	}
	body.WriteString("</table><p>" + strings.ReplaceAll(html.EscapeString(lead.Message), "\n", "<br>") + "</p>")
	text.WriteString("\n" + lead.Message + "\n")

	err := sender.Send(ctx, mail.Message{
		To:      to,
		Subject: "New contact request from " + lead.Name,
		HTML:    body.String(),
		Text:    text.String(),
		Headers: map[string]string{"Reply-To": lead.Email},
	})
	if err != nil {
		return fmt.Errorf("sending lead notification: %w", err)
	}
	return nil
}
