package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/mail"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/store"
	"github.com/olegiv/sitecms-go/internal/util"
)

const notifyTimeout = 30 * time.Second

// LeadsHandler accepts contact form submissions.
type LeadsHandler struct {
	leads        *service.LeadService
	docs         *cms.Store[cms.Document]
	integrations *integrations.Service
	events       *service.EventService
	notifyTo     string
	mailer       func(mail.Config) mail.Sender
}

// NewLeadsHandler creates a new LeadsHandler. notifyTo overrides the site
// contact address as the notification recipient.
func NewLeadsHandler(leads *service.LeadService, docs *cms.Store[cms.Document], svc *integrations.Service,
	events *service.EventService, notifyTo string) *LeadsHandler {
	return &LeadsHandler{
		leads:        leads,
		docs:         docs,
		integrations: svc,
		events:       events,
		notifyTo:     notifyTo,
		mailer:       func(cfg mail.Config) mail.Sender { return mail.NewSMTPMailer(cfg) },
	}
}

type leadView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// Contact handles POST /api/contact.
func (h *LeadsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lead, err := h.leads.Create(r.Context(), service.LeadInput{
		Name:      req.Name,
		Email:     req.Email,
		Company:   req.Company,
		Phone:     req.Phone,
		Message:   req.Message,
		Source:    req.Source,
		IPAddress: util.ClientIP(r),
	})
	if errors.Is(err, service.ErrLeadName) || errors.Is(err, service.ErrLeadEmail) || errors.Is(err, service.ErrLeadMessage) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logAndInternalError(w, "lead create failed", "error", err)
		return
	}

	h.notify(context.WithoutCancel(r.Context()), lead)

	writeJSON(w, http.StatusOK, map[string]any{"id": lead.ID})
}

// notify e-mails the lead to the site owner. Failures are logged only.
func (h *LeadsHandler) notify(ctx context.Context, lead store.Lead) {
	eff, _, err := h.integrations.Effective(ctx)
	if err != nil {
		slog.Warn("lead notification skipped", "lead_id", lead.ID, "error", err)
		return
	}
	cfg := integrations.MailConfig(eff)
	if !cfg.IsConfigured() {
		return
	}

	to := h.notifyTo
	if to == "" {
		snap, err := h.docs.Read(ctx)
		if err != nil {
			slog.Warn("lead notification skipped", "lead_id", lead.ID, "error", err)
			return
		}
		to = snap.Data.Site.ContactEmail
	}
	if to == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := service.NotifyLead(ctx, h.mailer(cfg), to, lead); err != nil {
		slog.Error("lead notification failed", "lead_id", lead.ID, "error", err)
		_ = h.events.LogIntegrationsEvent(ctx, model.EventLevelWarning, "Lead notification failed", nil,
			lead.IpAddress, "/api/contact", map[string]any{"leadId": lead.ID})
	}
}

// List handles GET /api/admin/leads[?limit=&offset=].
func (h *LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.leads.List(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		logAndInternalError(w, "leads list failed", "error", err)
		return
	}
	out := make([]leadView, 0, len(rows))
	for _, l := range rows {
		out = append(out, leadView{
			ID:        l.ID,
			Name:      l.Name,
			Email:     l.Email,
			Company:   l.Company,
			Phone:     l.Phone,
			Message:   l.Message,
			Source:    l.Source,
			CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": out})
}
