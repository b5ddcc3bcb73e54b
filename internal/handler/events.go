package handler

import (
	"net/http"
	"time"

	"github.com/olegiv/sitecms-go/internal/service"
)

// Event list limits.
const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// EventsHandler serves the event log.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

type eventView struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	UserID     *int64    `json:"userId"`
	Metadata   any       `json:"metadata"`
	IPAddress  string    `json:"ipAddress"`
	RequestURL string    `json:"requestUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// List handles GET /api/admin/events[?limit=&category=].
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	rows, err := h.events.ListEvents(r.Context(), category, int64(queryLimit(r, defaultEventLimit, maxEventLimit)))
	if err != nil {
		logAndInternalError(w, "events list failed", "error", err)
		return
	}

	out := make([]eventView, 0, len(rows))
	for _, e := range rows {
		v := eventView{
			ID:         e.ID,
			Level:      e.Level,
			Category:   e.Category,
			Message:    e.Message,
			Metadata:   rawJSON(e.Metadata),
			IPAddress:  e.IpAddress,
			RequestURL: e.RequestUrl,
			CreatedAt:  e.CreatedAt,
		}
		if e.UserID.Valid {
			id := e.UserID.Int64
			v.UserID = &id
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
