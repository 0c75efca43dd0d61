package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/realmkeeper/internal/api/middleware"
	"github.com/mcoot/realmkeeper/internal/api/response"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/realtime"
	"github.com/mcoot/realmkeeper/internal/services/events"
	"github.com/mcoot/realmkeeper/internal/services/ownership"
)

// EventHandler handles the narrative event log and its live stream
type EventHandler struct {
	recorder *events.Recorder
	hub      *realtime.Hub
}

// NewEventHandler creates a new event handler
func NewEventHandler(recorder *events.Recorder, hub *realtime.Hub) *EventHandler {
	return &EventHandler{
		recorder: recorder,
		hub:      hub,
	}
}

// List handles GET /api/events?limit=&offset=&kingdom_id=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.MustGetPrincipal(r.Context())
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		WriteError(w, err)
		return
	}

	query := ownership.EventQuery(principal, model.KingdomID(q.Get("kingdom_id")), limit, offset)
	log, err := h.recorder.List(r.Context(), query)
	if err != nil {
		WriteError(w, err)
		return
	}
	if log == nil {
		log = []*model.Event{}
	}
	response.JSON(w, http.StatusOK, log)
}

// Stream handles GET /api/ws
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	realtime.ServeWS(w, r, h.hub, middleware.MustGetPrincipal(r.Context()))
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, model.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}
