// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitecms-go/internal/campaign"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/mail"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

// CampaignsHandler serves subscribers and e-mail campaigns.
type CampaignsHandler struct {
	campaigns    *campaign.Service
	integrations *integrations.Service
	events       *service.EventService
	// mailer builds the sender for a send; replaced in tests.
	mailer func(mail.Config) mail.Sender
}

// NewCampaignsHandler creates a new CampaignsHandler.
func NewCampaignsHandler(campaigns *campaign.Service, svc *integrations.Service, events *service.EventService) *CampaignsHandler {
	return &CampaignsHandler{
		campaigns:    campaigns,
		integrations: svc,
		events:       events,
		mailer:       func(cfg mail.Config) mail.Sender { return mail.NewSMTPMailer(cfg) },
	}
}

type subscriberView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newSubscriberView(s store.Subscriber) subscriberView {
	return subscriberView{
		ID:        s.ID,
		Email:     s.Email,
		Name:      s.Name,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type campaignView struct {
	ID         int64      `json:"id"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Status     string     `json:"status"`
	Recipients int64      `json:"recipients"`
	Delivered  int64      `json:"delivered"`
	Failed     int64      `json:"failed"`
	SentAt     *time.Time `json:"sentAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func newCampaignView(c store.Campaign) campaignView {
	v := campaignView{
		ID:         c.ID,
		Subject:    c.Subject,
		Body:       c.BodyMarkdown,
		Status:     c.Status,
		Recipients: c.Recipients,
		Delivered:  c.Delivered,
		Failed:     c.Failed,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.SentAt.Valid {
		t := c.SentAt.Time
		v.SentAt = &t
	}
	return v
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Subscribe handles POST /api/subscribe.
func (h *CampaignsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.campaigns.Subscribe(r.Context(), req.Email, req.Name)
	if errors.Is(err, campaign.ErrInvalidEmail) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logAndInternalError(w, "subscribe failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribed": true, "status": sub.Status})
}

// Unsubscribe handles GET /api/unsubscribe?token=.
func (h *CampaignsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ok, err := h.campaigns.Unsubscribe(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		logAndInternalError(w, "unsubscribe failed", "error", err)
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Unknown unsubscribe link")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unsubscribed": true})
}

// Subscribers handles GET /api/admin/subscribers[?status=].
func (h *CampaignsHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != campaign.SubscriberActive && status != campaign.SubscriberUnsubscribed {
		writeJSONError(w, http.StatusBadRequest, "status must be active or unsubscribed")
		return
	}

	subs, err := h.campaigns.Subscribers(r.Context(), status)
	if err != nil {
		logAndInternalError(w, "subscribers list failed", "error", err)
		return
	}
	out := make([]subscriberView, 0, len(subs))
	for _, s := range subs {
		out = append(out, newSubscriberView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscribers": out})
}

// List handles GET /api/admin/campaigns.
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.campaigns.List(r.Context(), queryLimit(r, campaign.DefaultListLimit, campaign.MaxListLimit))
	if err != nil {
		logAndInternalError(w, "campaigns list failed", "error", err)
		return
	}
	out := make([]campaignView, 0, len(rows))
	for _, c := range rows {
		out = append(out, newCampaignView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
}

type createCampaignRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Create handles POST /api/admin/campaigns.
func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor, _ := actorFromRequest(r)
	c, err := h.campaigns.Create(r.Context(), req.Subject, req.Body, actor)
	if errors.Is(err, campaign.ErrSubjectNeeded) || errors.Is(err, campaign.ErrBodyNeeded) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logAndInternalError(w, "campaign create failed", "error", err)
		return
	}

	_ = h.events.LogCampaignEvent(r.Context(), model.EventLevelInfo, "Campaign created", userIDPtr(r),
		util.ClientIP(r), r.URL.Path, map[string]any{"campaignId": c.ID})

	writeJSON(w, http.StatusCreated, map[string]any{"campaign": newCampaignView(c)})
}

// Get handles GET /api/admin/campaigns/{id}.
func (h *CampaignsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := util.ParsePositiveInt64(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	c, err := h.campaigns.Get(r.Context(), id)
	if errors.Is(err, campaign.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		logAndInternalError(w, "campaign read failed", "error", err, "campaign_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaign": newCampaignView(c)})
}

// Send handles POST /api/admin/campaigns/{id}/send.
func (h *CampaignsHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := util.ParsePositiveInt64(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	ctx := r.Context()
	eff, _, err := h.integrations.Effective(ctx)
	if err != nil {
		logAndInternalError(w, "integrations read failed", "error", err)
		return
	}
	cfg := integrations.MailConfig(eff)
	if !cfg.IsConfigured() {
		writeJSONError(w, http.StatusBadRequest, "SMTP is not configured")
		return
	}

	actor, _ := actorFromRequest(r)
	c, err := h.campaigns.Send(ctx, id, h.mailer(cfg), unsubscribeBase(r), actor)
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	case errors.Is(err, campaign.ErrNotSendable):
		writeJSONError(w, http.StatusConflict, "Campaign is already sending or sent")
		return
	case err != nil:
		logAndInternalError(w, "campaign send failed", "error", err, "campaign_id", id)
		return
	}

	level := model.EventLevelInfo
	if c.Status != campaign.StatusSent {
		level = model.EventLevelError
	}
	_ = h.events.LogCampaignEvent(ctx, level, "Campaign sent", userIDPtr(r), util.ClientIP(r), r.URL.Path,
		map[string]any{"campaignId": c.ID, "status": c.Status, "delivered": c.Delivered, "failed": c.Failed})

	writeJSON(w, http.StatusOK, map[string]any{"campaign": newCampaignView(c)})
}

// unsubscribeBase is the absolute unsubscribe URL for the host the admin is
// using, honouring a TLS-terminating proxy.
func unsubscribeBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/api/unsubscribe"
}
