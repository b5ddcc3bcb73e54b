// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package campaign manages newsletter subscribers and sends Markdown e-mail
// campaigns to them.
package campaign

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/mail"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// Campaign statuses.
const (
	StatusDraft   = "draft"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Subscriber statuses.
const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
)

// Field limits.
const (
	MaxSubjectLength = 200
	MaxBodyLength    = 50000
	MaxNameLength    = 120
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Campaign errors.
var (
	ErrNotFound      = errors.New("campaign not found")
	ErrNotSendable   = errors.New("campaign is already sending or sent")
	ErrSubjectNeeded = errors.New("subject is required")
	ErrBodyNeeded    = errors.New("body is required")
	ErrInvalidEmail  = errors.New("a valid email is required")
)

// Service owns campaigns and subscribers.
type Service struct {
	db      *sql.DB
	queries *store.Queries
	now     func() time.Time
}

// NewService creates a Service.
func NewService(db *sql.DB) *Service {
	return &Service{
		db:      db,
		queries: store.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe adds or reactivates a subscriber.
func (s *Service) Subscribe(ctx context.Context, email, name string) (store.Subscriber, error) {
	email = cms.NormalizeEmail(email)
	if email == "" {
		return store.Subscriber{}, ErrInvalidEmail
	}
	name = cms.CleanText(name, MaxNameLength)

	now := s.now()
	sub, err := s.queries.UpsertSubscriber(ctx, store.UpsertSubscriberParams{
		Email:            email,
		Name:             name,
		UnsubscribeToken: uuid.NewString(),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return store.Subscriber{}, fmt.Errorf("saving subscriber: %w", err)
	}
	return sub, nil
}

// Unsubscribe deactivates the subscriber owning token. It reports false for
// unknown tokens.
func (s *Service) Unsubscribe(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		return false, nil
	}
	n, err := s.queries.UnsubscribeByToken(ctx, store.UnsubscribeByTokenParams{
		UpdatedAt:        s.now(),
		UnsubscribeToken: token,
	})
	if err != nil {
		return false, fmt.Errorf("unsubscribing: %w", err)
	}
	return n > 0, nil
}

// Subscribers lists subscribers, optionally filtered by status.
func (s *Service) Subscribers(ctx context.Context, status string) ([]store.Subscriber, error) {
	return s.queries.ListSubscribers(ctx, status)
}

// Create stores a draft campaign.
func (s *Service) Create(ctx context.Context, subject, body string, actor cms.Actor) (store.Campaign, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return store.Campaign{}, ErrSubjectNeeded
	}
	if body == "" {
		return store.Campaign{}, ErrBodyNeeded
	}
	if utf8.RuneCountInString(subject) > MaxSubjectLength {
		subject = string([]rune(subject)[:MaxSubjectLength])
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		body = string([]rune(body)[:MaxBodyLength])
	}

	now := s.now()
	c, err := s.queries.CreateCampaign(ctx, store.CreateCampaignParams{
		Subject:      subject,
		BodyMarkdown: body,
		CreatedByID:  util.NullInt64FromID(actor.UserID),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return store.Campaign{}, fmt.Errorf("creating campaign: %w", err)
	}
	return c, nil
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id int64) (store.Campaign, error) {
	c, err := s.queries.GetCampaign(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Campaign{}, ErrNotFound
	}
	return c, err
}

// List returns the newest campaigns.
func (s *Service) List(ctx context.Context, limit int) ([]store.Campaign, error) {
	return s.queries.ListCampaigns(ctx, int64(util.ClampInt(limit, DefaultListLimit, 1, MaxListLimit)))
}

// Send delivers campaign id to every active subscriber through sender.
// The campaign is claimed first, so concurrent calls for one campaign send
// it at most once. unsubscribeBase is the absolute URL of the unsubscribe
// endpoint; the recipient's token is appended as ?token=.
func (s *Service) Send(ctx context.Context, id int64, sender mail.Sender, unsubscribeBase string, actor cms.Actor) (store.Campaign, error) {
	c, err := s.queries.ClaimCampaignForSending(ctx, store.ClaimCampaignForSendingParams{
		UpdatedAt: s.now(),
		ID:        id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.Get(ctx, id); err != nil {
			return store.Campaign{}, err
		}
		return store.Campaign{}, ErrNotSendable
	}
	if err != nil {
		return store.Campaign{}, fmt.Errorf("claiming campaign: %w", err)
	}

	rendered, err := mail.RenderMarkdown(c.BodyMarkdown)
	if err != nil {
		_, _ = s.complete(ctx, id, StatusFailed, 0, 0, 0)
		return store.Campaign{}, fmt.Errorf("rendering campaign: %w", err)
	}
	text := mail.PlainText(rendered)

	subs, err := s.queries.ListSubscribers(ctx, SubscriberActive)
	if err != nil {
		_, _ = s.complete(ctx, id, StatusFailed, 0, 0, 0)
		return store.Campaign{}, fmt.Errorf("listing subscribers: %w", err)
	}

	var delivered, failed int64
	for _, sub := range subs {
		if ctx.Err() != nil {
			failed++
			continue
		}
		link := unsubscribeLink(unsubscribeBase, sub.UnsubscribeToken)
		msg := mail.Message{
			To:      sub.Email,
			Subject: c.Subject,
			HTML:    rendered + `<hr><p style="font-size:12px"><a href="` + html.EscapeString(link) + `">Unsubscribe</a></p>`,
			Text:    text + "\n\n--\nUnsubscribe: " + link,
			Headers: map[string]string{"List-Unsubscribe": "<" + link + ">"},
		}
		if err := sender.Send(ctx, msg); err != nil {
			failed++
			slog.Warn("campaign delivery failed", "campaign_id", id, "subscriber_id", sub.ID, "error", err)
			continue
		}
		delivered++
	}

	status := StatusSent
	if delivered == 0 && len(subs) > 0 {
		status = StatusFailed
	}

	c, err = s.complete(ctx, id, status, int64(len(subs)), delivered, failed)
	if err != nil {
		return store.Campaign{}, err
	}

	meta, _ := sjson.Set(`{}`, "status", status)
	meta, _ = sjson.Set(meta, "recipients", len(subs))
	meta, _ = sjson.Set(meta, "delivered", delivered)
	meta, _ = sjson.Set(meta, "failed", failed)
	if _, err := s.queries.CreateAuditLog(ctx, store.CreateAuditLogParams{
		ActorUserID:   util.NullInt64FromID(actor.UserID),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        model.AuditCampaignSend,
		Resource:      model.ResourceCampaign,
		ResourceID:    fmt.Sprint(id),
		Metadata:      meta,
		CreatedAt:     s.now(),
	}); err != nil {
		slog.Error("failed to write campaign audit row", "campaign_id", id, "error", err)
	}
	return c, nil
}

// complete records the outcome, ignoring cancellation of ctx so a campaign
// never stays in sending.
func (s *Service) complete(ctx context.Context, id int64, status string, recipients, delivered, failed int64) (store.Campaign, error) {
	ctx = context.WithoutCancel(ctx)
	now := s.now()
	c, err := s.queries.CompleteCampaign(ctx, store.CompleteCampaignParams{
		Status:     status,
		Recipients: recipients,
		Delivered:  delivered,
		Failed:     failed,
		SentAt:     sql.NullTime{Time: now, Valid: status == StatusSent},
		UpdatedAt:  now,
		ID:         id,
	})
	if err != nil {
		return store.Campaign{}, fmt.Errorf("completing campaign: %w", err)
	}
	return c, nil
}

func unsubscribeLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
