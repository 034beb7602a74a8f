package events

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/ids"
	"github.com/Togather-Foundation/confdir/internal/sanitize"
	"github.com/Togather-Foundation/confdir/internal/validation"
	"github.com/rs/zerolog"
)

// ConferenceLookup resolves the conference an event is attached to.
type ConferenceLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo        Repository
	conferences ConferenceLookup
	calendar    *calendar.Builder
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, conferences ConferenceLookup, builder *calendar.Builder, logger zerolog.Logger) *Service {
	if builder == nil {
		builder = calendar.NewBuilder(time.Local, logger)
	}
	return &Service{
		repo:        repo,
		conferences: conferences,
		calendar:    builder,
		logger:      logger.With().Str("component", "events").Logger(),
		now:         time.Now,
	}
}

// Input is the writable shape of an event.
type Input struct {
	ID              string   `json:"id,omitempty"`
	ConferenceID    string   `json:"conferenceId,omitempty"`
	Title           string   `json:"title" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=5000"`
	Category        string   `json:"category,omitempty" validate:"max=100"`
	Status          Status   `json:"status,omitempty" validate:"omitempty,oneof=Draft Published"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string   `json:"startTime" validate:"required,max=20"`
	EndTime         string   `json:"endTime,omitempty" validate:"max=20"`
	VenueName       string   `json:"venueName" validate:"required,max=200"`
	LocationAddress string   `json:"locationAddress,omitempty" validate:"max=300"`
	LocationName    string   `json:"locationName,omitempty" validate:"max=200"`
	Host            string   `json:"host" validate:"required,max=200"`
	Capacity        *int     `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	RegistrationURL string   `json:"registrationUrl,omitempty"`
	Link            string   `json:"link,omitempty"`
	Image           string   `json:"image,omitempty"`
	Tags            []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
}

// Patch carries a partial update; nil fields are left as they are. An empty
// ConferenceID detaches the event.
type Patch struct {
	ConferenceID    *string   `json:"conferenceId,omitempty"`
	Title           *string   `json:"title,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Status          *Status   `json:"status,omitempty"`
	Date            *string   `json:"date,omitempty"`
	StartTime       *string   `json:"startTime,omitempty"`
	EndTime         *string   `json:"endTime,omitempty"`
	VenueName       *string   `json:"venueName,omitempty"`
	LocationAddress *string   `json:"locationAddress,omitempty"`
	LocationName    *string   `json:"locationName,omitempty"`
	Host            *string   `json:"host,omitempty"`
	Capacity        *int      `json:"capacity,omitempty"`
	RegistrationURL *string   `json:"registrationUrl,omitempty"`
	Link            *string   `json:"link,omitempty"`
	Image           *string   `json:"image,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
}

// List returns matching events ordered by date, then start time of day.
func (s *Service) List(ctx context.Context, filters Filters) ([]Event, error) {
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	SortChronologically(items)
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	if err := ids.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, ids.Normalize(id))
}

func (s *Service) Create(ctx context.Context, input Input) (*Event, error) {
	event, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}
	if event.ID == "" {
		id, err := ids.NewULID()
		if err != nil {
			return nil, fmt.Errorf("mint event id: %w", err)
		}
		event.ID = id
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("event_id", created.ID).
		Str("conference_id", created.ConferenceID).
		Str("status", string(created.Status)).
		Msg("event created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Event, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input := inputFrom(*existing)
	patch.applyTo(&input)

	event, err := s.build(ctx, input)
	if err != nil {
		return nil, err
	}
	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("event_id", updated.ID).Msg("event updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ids.ValidateID(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ids.Normalize(id)); err != nil {
		return err
	}
	s.logger.Info().Str("event_id", id).Msg("event deleted")
	return nil
}

// CalendarURL is the Google Calendar quick-add link for e, or "" when its
// date or start time cannot be read.
func (s *Service) CalendarURL(e Event) string {
	return s.calendar.GoogleURL(e.CalendarEvent())
}

// ICS renders e as a single-event iCalendar document.
func (s *Service) ICS(e Event) ([]byte, error) {
	return s.calendar.ICS(e.CalendarEvent(), "", s.now())
}

// Validate reports whether Create would accept input without storing it.
// Conference ids in pending count as existing, so a batch that creates a
// conference and its events can be checked before any write.
func (s *Service) Validate(ctx context.Context, input Input, pending ...string) error {
	var lookup ConferenceLookup = s.conferences
	if len(pending) > 0 {
		lookup = pendingConferences{known: s.conferences, pending: pending}
	}
	_, err := s.buildWith(ctx, input, lookup)
	return err
}

type pendingConferences struct {
	known   ConferenceLookup
	pending []string
}

func (p pendingConferences) Exists(ctx context.Context, id string) (bool, error) {
	for _, candidate := range p.pending {
		if ids.Normalize(candidate) == id {
			return true, nil
		}
	}
	if p.known == nil {
		return false, nil
	}
	return p.known.Exists(ctx, id)
}

func (s *Service) build(ctx context.Context, input Input) (Event, error) {
	return s.buildWith(ctx, input, s.conferences)
}

func (s *Service) buildWith(ctx context.Context, input Input, lookup ConferenceLookup) (Event, error) {
	input = cleanInput(input)
	if err := validation.Struct(input); err != nil {
		return Event{}, err
	}
	if input.ID != "" {
		if err := ids.ValidateID(input.ID); err != nil {
			return Event{}, validation.Error{Field: "id", Message: "must be a ULID or slug"}
		}
	}
	if _, err := calendar.ParseClock(input.StartTime); err != nil {
		return Event{}, validation.Error{Field: "startTime", Message: "must look like 9:30 AM or 21:30"}
	}
	if input.EndTime != "" {
		if _, err := calendar.ParseClock(input.EndTime); err != nil {
			return Event{}, validation.Error{Field: "endTime", Message: "must look like 9:30 AM or 21:30"}
		}
	}
	for _, check := range []struct{ field, value string }{
		{"registrationUrl", input.RegistrationURL},
		{"link", input.Link},
		{"image", input.Image},
	} {
		if err := validation.URL(check.field, check.value); err != nil {
			return Event{}, err
		}
	}

	if input.ConferenceID != "" {
		if err := ids.ValidateID(input.ConferenceID); err != nil {
			return Event{}, validation.Error{Field: "conferenceId", Message: "unknown conference"}
		}
		input.ConferenceID = ids.Normalize(input.ConferenceID)
		if lookup != nil {
			ok, err := lookup.Exists(ctx, input.ConferenceID)
			if err != nil {
				return Event{}, fmt.Errorf("check conference: %w", err)
			}
			if !ok {
				return Event{}, validation.Error{Field: "conferenceId", Message: "unknown conference"}
			}
		}
	}

	event := Event{
		ID:              ids.Normalize(input.ID),
		ConferenceID:    input.ConferenceID,
		Title:           input.Title,
		Description:     input.Description,
		Category:        input.Category,
		Status:          input.Status,
		Date:            input.Date,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		VenueName:       input.VenueName,
		LocationAddress: input.LocationAddress,
		LocationName:    input.LocationName,
		Host:            input.Host,
		Capacity:        input.Capacity,
		RegistrationURL: input.RegistrationURL,
		Link:            input.Link,
		Image:           input.Image,
		Tags:            input.Tags,
	}
	if event.Status == "" {
		event.Status = conferences.StatusDraft
	}
	if event.LocationName == "" {
		event.LocationName = event.VenueName
	}
	return event, nil
}

func cleanInput(input Input) Input {
	input.ConferenceID = strings.TrimSpace(input.ConferenceID)
	input.Title = sanitize.Text(input.Title)
	input.Description = sanitize.Text(input.Description)
	input.Category = sanitize.Text(input.Category)
	input.Date = strings.TrimSpace(input.Date)
	input.StartTime = strings.TrimSpace(input.StartTime)
	input.EndTime = strings.TrimSpace(input.EndTime)
	input.VenueName = sanitize.Text(input.VenueName)
	input.LocationAddress = sanitize.Text(input.LocationAddress)
	input.LocationName = sanitize.Text(input.LocationName)
	input.Host = sanitize.Text(input.Host)
	input.RegistrationURL = strings.TrimSpace(input.RegistrationURL)
	input.Link = strings.TrimSpace(input.Link)
	input.Image = strings.TrimSpace(input.Image)
	input.Tags = sanitize.Tags(input.Tags)
	return input
}

func inputFrom(e Event) Input {
	return Input{
		ID:              e.ID,
		ConferenceID:    e.ConferenceID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Status:          e.Status,
		Date:            e.Date,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		VenueName:       e.VenueName,
		LocationAddress: e.LocationAddress,
		LocationName:    e.LocationName,
		Host:            e.Host,
		Capacity:        e.Capacity,
		RegistrationURL: e.RegistrationURL,
		Link:            e.Link,
		Image:           e.Image,
		Tags:            e.Tags,
	}
}

func (p Patch) applyTo(in *Input) {
	setString(&in.ConferenceID, p.ConferenceID)
	setString(&in.Title, p.Title)
	setString(&in.Description, p.Description)
	setString(&in.Category, p.Category)
	setString(&in.Date, p.Date)
	setString(&in.StartTime, p.StartTime)
	setString(&in.EndTime, p.EndTime)
	setString(&in.LocationAddress, p.LocationAddress)
	setString(&in.Host, p.Host)
	setString(&in.RegistrationURL, p.RegistrationURL)
	setString(&in.Link, p.Link)
	setString(&in.Image, p.Image)
	if p.VenueName != nil {
		// A stale display name would otherwise outlive the venue change.
		if in.LocationName == in.VenueName {
			in.LocationName = ""
		}
		in.VenueName = *p.VenueName
	}
	setString(&in.LocationName, p.LocationName)
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Capacity != nil {
		in.Capacity = p.Capacity
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// SortChronologically orders events by date, then by parsed start time.
// Events whose start time does not parse sort after the others of their day.
func SortChronologically(items []Event) {
	minuteOfDay := func(e Event) int {
		c, err := calendar.ParseClock(e.StartTime)
		if err != nil {
			return 24 * 60
		}
		return c.Hour*60 + c.Minute
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return minuteOfDay(items[i]) < minuteOfDay(items[j])
	})
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters reads conference, independent, status, from, to and q query
// parameters.
func ParseFilters(values url.Values) (Filters, error) {
	filters := Filters{
		ConferenceID: strings.TrimSpace(values.Get("conference")),
		Query:        strings.TrimSpace(values.Get("q")),
	}
	if filters.ConferenceID != "" {
		if err := ids.ValidateID(filters.ConferenceID); err != nil {
			return filters, FilterError{Field: "conference", Message: "invalid id"}
		}
		filters.ConferenceID = ids.Normalize(filters.ConferenceID)
	}

	if raw := strings.TrimSpace(values.Get("independent")); raw != "" {
		independent, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, FilterError{Field: "independent", Message: "must be true or false"}
		}
		filters.IndependentOnly = independent
	}
	if filters.IndependentOnly && filters.ConferenceID != "" {
		return filters, FilterError{Field: "conference,independent", Message: "cannot combine conference with independent=true"}
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			return filters, FilterError{Field: "status", Message: "must be Draft or Published"}
		}
		filters.Status = status
	}

	for _, bound := range []struct {
		name string
		dst  *string
	}{{"from", &filters.From}, {"to", &filters.To}} {
		raw := strings.TrimSpace(values.Get(bound.name))
		if raw == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return filters, FilterError{Field: bound.name, Message: "must be a YYYY-MM-DD date"}
		}
		*bound.dst = raw
	}
	if filters.From != "" && filters.To != "" && filters.To < filters.From {
		return filters, FilterError{Field: "to", Message: "must not be before from"}
	}
	return filters, nil
}
