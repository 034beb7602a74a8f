package handlers

import (
	"net/http"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/rs/zerolog"
)

// SubmissionsHandler accepts listings proposed by the public. Submissions are
// always stored as Draft with a server-minted id, awaiting review.
type SubmissionsHandler struct {
	Conferences *conferences.Service
	Events      *events.Service
	Env         string
}

func NewSubmissionsHandler(conferenceService *conferences.Service, eventService *events.Service, env string) *SubmissionsHandler {
	return &SubmissionsHandler{Conferences: conferenceService, Events: eventService, Env: env}
}

// Conference handles POST /api/v1/submissions/conferences.
func (h *SubmissionsHandler) Conference(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Conferences == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	var input conferences.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	input.ID = ""
	input.Status = conferences.StatusDraft

	created, err := h.Conferences.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("conference").Inc()
	zerolog.Ctx(r.Context()).Info().Str("conference_id", created.ID).Msg("conference submitted")
	writeJSON(w, http.StatusCreated, newConferenceResponse(*created))
}

// Event handles POST /api/v1/submissions/events.
func (h *SubmissionsHandler) Event(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Events == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	input.ID = ""
	input.Status = conferences.StatusDraft

	created, err := h.Events.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("event").Inc()
	zerolog.Ctx(r.Context()).Info().Str("event_id", created.ID).Msg("event submitted")
	writeJSON(w, http.StatusCreated, newEventResponse(*created, h.Events.CalendarURL(*created)))
}
