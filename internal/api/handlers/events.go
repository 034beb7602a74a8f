package handlers

import (
	"errors"
	"net/http"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventsHandler serves the public event listing and its calendar exports.
type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

// List handles GET /api/v1/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	filters, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	filters.Status = conferences.StatusPublished

	items, err := h.Service.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[eventResponse]{Items: newEventResponses(h.Service, items)})
}

// Get handles GET /api/v1/events/{id}. The response carries calendarUrl when
// the event time can be read.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	event, ok := h.published(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newEventResponse(*event, h.Service.CalendarURL(*event)))
}

// Calendar handles GET /api/v1/events/{id}/calendar by redirecting to the
// Google Calendar quick-add link.
func (h *EventsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	event, ok := h.published(w, r)
	if !ok {
		return
	}

	_, span := telemetry.StartSpan(r.Context(), "calendar.link", attribute.String("event.id", event.ID))
	defer span.End()

	link := h.Service.CalendarURL(*event)
	metrics.RecordCalendarLink("google", link != "")
	if link == "" {
		span.SetStatus(codes.Error, calendar.ErrUnparseableEventTime.Error())
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeCalendar, "Calendar link unavailable", calendar.ErrUnparseableEventTime, h.Env,
			problem.WithDetail("The event date or start time cannot be read."))
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

// ICS handles GET /api/v1/events/{id}/calendar.ics.
func (h *EventsHandler) ICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", nil, "")
		return
	}

	event, ok := h.published(w, r)
	if !ok {
		return
	}

	_, span := telemetry.StartSpan(r.Context(), "calendar.ics", attribute.String("event.id", event.ID))
	defer span.End()

	body, err := h.Service.ICS(*event)
	metrics.RecordCalendarLink("ics", err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, calendar.ErrUnparseableEventTime) {
			problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeCalendar, "Calendar file unavailable", err, h.Env,
				problem.WithDetail("The event date or start time cannot be read."))
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServer, "Server error", err, h.Env)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+event.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *EventsHandler) published(w http.ResponseWriter, r *http.Request) (*events.Event, bool) {
	event, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return nil, false
	}
	if event.Status != conferences.StatusPublished {
		writeNotFound(w, r, h.Env)
		return nil, false
	}
	return event, true
}
