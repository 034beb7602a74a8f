package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
)

// ConferencesHandler serves the public conference listing. Only Published
// conferences and events are visible here.
type ConferencesHandler struct {
	Conferences *conferences.Service
	Events      *events.Service
	Env         string
}

func NewConferencesHandler(conferenceService *conferences.Service, eventService *events.Service, env string) *ConferencesHandler {
	return &ConferencesHandler{Conferences: conferenceService, Events: eventService, Env: env}
}

type monthsResponse struct {
	Months []conferences.MonthOption `json:"months"`
}

type groupedResponse struct {
	Groups []monthGroupResponse `json:"groups"`
}

// Months handles GET /api/v1/months.
func (h *ConferencesHandler) Months(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Conferences == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	months, err := h.Conferences.Months(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	if months == nil {
		months = []conferences.MonthOption{}
	}
	writeJSON(w, http.StatusOK, monthsResponse{Months: months})
}

// List handles GET /api/v1/conferences. With grouped=true the result is
// bucketed by start month.
func (h *ConferencesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Conferences == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	query := r.URL.Query()
	filters, err := conferences.ParseFilters(query)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	filters.Status = conferences.StatusPublished

	grouped := false
	if raw := strings.TrimSpace(query.Get("grouped")); raw != "" {
		grouped, err = strconv.ParseBool(raw)
		if err != nil {
			writeServiceError(w, r, conferences.FilterError{Field: "grouped", Message: "must be true or false"}, h.Env)
			return
		}
	}

	items, err := h.Conferences.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	if !grouped {
		writeJSON(w, http.StatusOK, listResponse[conferenceResponse]{Items: newConferenceResponses(items)})
		return
	}

	groups := conferences.GroupByMonth(items)
	out := make([]monthGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, monthGroupResponse{
			MonthOption: g.MonthOption,
			Conferences: newConferenceResponses(g.Conferences),
		})
	}
	writeJSON(w, http.StatusOK, groupedResponse{Groups: out})
}

// Get handles GET /api/v1/conferences/{id}.
func (h *ConferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Conferences == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	conference, ok := h.published(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newConferenceResponse(*conference))
}

// ListEvents handles GET /api/v1/conferences/{id}/events.
func (h *ConferencesHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Conferences == nil || h.Events == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	conference, ok := h.published(w, r)
	if !ok {
		return
	}

	items, err := h.Events.List(r.Context(), events.Filters{
		ConferenceID: conference.ID,
		Status:       conferences.StatusPublished,
	})
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[eventResponse]{Items: newEventResponses(h.Events, items)})
}

// published loads the conference named by the id path value, answering 404
// for drafts.
func (h *ConferencesHandler) published(w http.ResponseWriter, r *http.Request) (*conferences.Conference, bool) {
	conference, err := h.Conferences.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return nil, false
	}
	if conference.Status != conferences.StatusPublished {
		writeNotFound(w, r, h.Env)
		return nil, false
	}
	return conference, true
}
