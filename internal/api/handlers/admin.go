package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/api/middleware"
	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/audit"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/storage"
)

// StatusReporter exposes how the store is connected.
type StatusReporter interface {
	Status(ctx context.Context) storage.Report
}

// AdminHandler manages conferences and events for signed-in editors. Unlike
// the public handlers it sees drafts.
type AdminHandler struct {
	Conferences *conferences.Service
	Events      *events.Service
	Store       StatusReporter
	Env         string
}

func NewAdminHandler(conferenceService *conferences.Service, eventService *events.Service, store StatusReporter, env string) *AdminHandler {
	return &AdminHandler{Conferences: conferenceService, Events: eventService, Store: store, Env: env}
}

// Status handles GET /api/v1/admin/status.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}
	report := h.Store.Status(r.Context())
	metrics.SetStorageStatus(report.Backend, string(report.Status))
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) ListConferences(w http.ResponseWriter, r *http.Request) {
	filters, err := conferences.ParseFilters(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	items, err := h.Conferences.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[conferenceResponse]{Items: newConferenceResponses(items)})
}

func (h *AdminHandler) GetConference(w http.ResponseWriter, r *http.Request) {
	conference, err := h.Conferences.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newConferenceResponse(*conference))
}

func (h *AdminHandler) CreateConference(w http.ResponseWriter, r *http.Request) {
	var input conferences.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	created, err := h.Conferences.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.conference.create", "conference", created.ID, nil)
	writeJSON(w, http.StatusCreated, newConferenceResponse(*created))
}

func (h *AdminHandler) UpdateConference(w http.ResponseWriter, r *http.Request) {
	var patch conferences.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	updated, err := h.Conferences.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.conference.update", "conference", updated.ID, nil)
	writeJSON(w, http.StatusOK, newConferenceResponse(*updated))
}

// DeleteConference handles DELETE /api/v1/admin/conferences/{id}. Side-events
// become independent unless deleteEvents=true.
func (h *AdminHandler) DeleteConference(w http.ResponseWriter, r *http.Request) {
	mode := conferences.DetachEvents
	if raw := strings.TrimSpace(r.URL.Query().Get("deleteEvents")); raw != "" {
		cascade, err := strconv.ParseBool(raw)
		if err != nil {
			writeServiceError(w, r, conferences.FilterError{Field: "deleteEvents", Message: "must be true or false"}, h.Env)
			return
		}
		if cascade {
			mode = conferences.DeleteEvents
		}
	}

	id := pathParam(r, "id")
	if err := h.Conferences.Delete(r.Context(), id, mode); err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.conference.delete", "conference", id, map[string]string{
		"delete_events": strconv.FormatBool(mode == conferences.DeleteEvents),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	items, err := h.Events.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[eventResponse]{Items: newEventResponses(h.Events, items)})
}

func (h *AdminHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Events.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(*event, h.Events.CalendarURL(*event)))
}

func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input events.Input
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	created, err := h.Events.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.event.create", "event", created.ID, nil)
	writeJSON(w, http.StatusCreated, newEventResponse(*created, h.Events.CalendarURL(*created)))
}

func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var patch events.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	updated, err := h.Events.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.event.update", "event", updated.ID, nil)
	writeJSON(w, http.StatusOK, newEventResponse(*updated, h.Events.CalendarURL(*updated)))
}

func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.Events.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	logAdminAction(r, "admin.event.delete", "event", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// logAdminAction writes a successful admin change to the audit trail.
func logAdminAction(r *http.Request, action, resourceType, resourceID string, details map[string]string) {
	var actor audit.Actor
	if principal := middleware.AdminPrincipal(r); principal != nil {
		actor = audit.Actor{ID: principal.ID, Email: principal.Email}
	}
	audit.FromContext(r.Context()).LogFromRequest(r, actor, action, resourceType, resourceID, audit.StatusSuccess, details)
}
