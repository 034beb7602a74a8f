// Package calendar builds "add to calendar" artifacts for directory events:
// Google Calendar quick-add links and single-event iCalendar documents.
package calendar

import (
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GoogleRenderURL is the quick-add endpoint of Google Calendar.
const GoogleRenderURL = "https://www.google.com/calendar/render"

// CompactUTCLayout is the timestamp form the quick-add dates parameter expects.
const CompactUTCLayout = "20060102T150405Z"

// DefaultDuration applies when an event has no usable end time.
const DefaultDuration = time.Hour

// Event is the read-only view of an event record the builder needs.
type Event struct {
	ID              string
	Title           string
	Description     string
	Host            string
	VenueName       string
	LocationAddress string
	RegistrationURL string
	Link            string
	Date            string
	StartTime       string
	EndTime         string
}

// Builder turns event records into calendar artifacts. The zero value is not
// usable; construct with NewBuilder.
type Builder struct {
	loc    *time.Location
	logger zerolog.Logger
}

// NewBuilder returns a Builder interpreting event wall-clock times in loc.
// A nil loc means time.Local.
func NewBuilder(loc *time.Location, logger zerolog.Logger) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		loc:    loc,
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

// Span resolves the start and end instants of an event. A missing or
// malformed end time falls back to start plus DefaultDuration; an end
// earlier than the start is moved to the following day.
func (b *Builder) Span(ev Event) (time.Time, time.Time, error) {
	if ev.Date == "" || ev.StartTime == "" {
		return time.Time{}, time.Time{}, ErrUnparseableEventTime
	}

	start, err := ParseEventTime(ev.Date, ev.StartTime, b.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end := start.Add(DefaultDuration)
	if ev.EndTime != "" {
		parsed, endErr := ParseEventTime(ev.Date, ev.EndTime, b.loc)
		if endErr == nil {
			end = parsed
			if end.Before(start) {
				end = end.AddDate(0, 0, 1)
			}
		} else {
			b.logger.Debug().Err(endErr).Str("event_id", ev.ID).Msg("end time unparseable, using default duration")
		}
	}
	return start, end, nil
}

// Build returns the Google Calendar quick-add link for ev, or the parse error
// that prevented it.
func (b *Builder) Build(ev Event) (string, error) {
	start, end, err := b.Span(ev)
	if err != nil {
		return "", err
	}

	dates := FormatCompactUTC(start) + "/" + FormatCompactUTC(end)

	// Parameter order follows the quick-add contract, so url.Values (which
	// sorts keys) is not used here.
	params := [][2]string{
		{"action", "TEMPLATE"},
		{"text", ev.Title},
		{"dates", dates},
		{"details", Details(ev)},
		{"location", Location(ev)},
		{"sf", "true"},
		{"output", "xml"},
	}

	var sb strings.Builder
	sb.WriteString(GoogleRenderURL)
	sb.WriteByte('?')
	for i, kv := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(kv[0])
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv[1]))
	}
	return sb.String(), nil
}

// GoogleURL is Build with every failure absorbed into an empty result.
func (b *Builder) GoogleURL(ev Event) string {
	link, err := b.Build(ev)
	if err != nil {
		b.logger.Debug().Err(err).Str("event_id", ev.ID).Msg("calendar link skipped")
		return ""
	}
	return link
}

// BuildGoogleURL builds a quick-add link using the process-local time zone.
func BuildGoogleURL(ev Event) string {
	return NewBuilder(time.Local, zerolog.Nop()).GoogleURL(ev)
}

// FormatCompactUTC renders t as YYYYMMDDTHHMMSSZ in UTC.
func FormatCompactUTC(t time.Time) string {
	return t.UTC().Format(CompactUTCLayout)
}

// Details is the description block attached to calendar entries.
func Details(ev Event) string {
	return ev.Description + "\n\nHost: " + ev.Host + "\n\nLink: " + firstNonEmpty(ev.RegistrationURL, ev.Link)
}

// Location is the venue name, followed by the street address when it adds
// something the venue name does not already say.
func Location(ev Event) string {
	address := strings.TrimSpace(ev.LocationAddress)
	if address == "" || address == strings.TrimSpace(ev.VenueName) {
		return ev.VenueName
	}
	return ev.VenueName + ", " + address
}
