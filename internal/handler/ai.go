package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/ai"
	"github.com/olegiv/sitecms-go/internal/cms"
	"github.com/olegiv/sitecms-go/internal/integrations"
	"github.com/olegiv/sitecms-go/internal/model"
	"github.com/olegiv/sitecms-go/internal/service"
	"github.com/olegiv/sitecms-go/internal/util"
)

// AIHandler drafts CMS sections with the configured AI providers.
type AIHandler struct {
	docs         *cms.Store[cms.Document]
	integrations *integrations.Service
	events       *service.EventService
	// providers builds the dispatcher candidates; replaced in tests.
	providers func(integrations.State) []ai.Provider
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(docs *cms.Store[cms.Document], svc *integrations.Service, events *service.EventService) *AIHandler {
	return &AIHandler{
		docs:         docs,
		integrations: svc,
		events:       events,
		providers:    integrations.Providers,
	}
}

type generateRequest struct {
	Provider string `json:"provider"`
	Section  string `json:"section"`
	Brief    string `json:"brief"`
}

// Generate handles POST /api/admin/ai/generate {provider, section, brief}.
// The draft is sanitized like any section write but is not stored.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pref := strings.ToLower(strings.TrimSpace(req.Provider))
	if pref == "" {
		pref = ai.ProviderAuto
	}
	if !ai.ValidPreference(pref) {
		writeJSONError(w, http.StatusBadRequest, "provider must be auto, gemini or openai")
		return
	}
	if !cms.Main.HasSection(req.Section) {
		writeJSONError(w, http.StatusBadRequest, "Unknown section")
		return
	}

	ctx := r.Context()
	snap, err := h.docs.Read(ctx)
	if err != nil {
		logAndInternalError(w, "cms read failed", "error", err)
		return
	}
	doc, err := json.Marshal(snap.Data)
	if err != nil {
		logAndInternalError(w, "cms encode failed", "error", err)
		return
	}
	example := json.RawMessage(gjson.GetBytes(doc, req.Section).Raw)

	eff, _, err := h.integrations.Effective(ctx)
	if err != nil {
		logAndInternalError(w, "integrations read failed", "error", err)
		return
	}

	dispatcher := ai.NewDispatcher(h.providers(eff)...)
	res, err := dispatcher.Generate(ctx, pref, ai.SectionPrompt(req.Section, example, req.Brief))
	if err != nil {
		h.generationError(w, r, pref, err)
		return
	}

	data, _ := cms.SanitizeSection(req.Section, res.Data)

	_ = h.events.LogCMSEvent(ctx, model.EventLevelInfo, "AI draft generated", userIDPtr(r), util.ClientIP(r), r.URL.Path,
		map[string]any{"provider": res.Provider, "section": req.Section})

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": res.Provider,
		"section":  req.Section,
		"data":     data,
	})
}

func (h *AIHandler) generationError(w http.ResponseWriter, r *http.Request, pref string, err error) {
	if errors.Is(err, ai.ErrNoProviderConfigured) {
		writeJSONError(w, http.StatusBadRequest, "No AI provider is configured")
		return
	}

	_ = h.events.LogIntegrationsEvent(r.Context(), model.EventLevelError, "AI generation failed", userIDPtr(r),
		util.ClientIP(r), r.URL.Path, map[string]any{"provider": pref, "error": err.Error()})

	if errors.Is(err, ai.ErrMalformedOutput) {
		writeJSONError(w, http.StatusBadGateway, "The AI provider returned malformed output")
		return
	}
	var failed *ai.AllProvidersFailedError
	if errors.As(err, &failed) {
		writeJSONError(w, http.StatusBadGateway, "All AI providers failed")
		return
	}
	logAndInternalError(w, "AI generation failed", "error", err)
}
