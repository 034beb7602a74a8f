package calendar

import (
	"time"

	ical "github.com/arran4/golang-ical"
)

// DefaultProductID identifies this service in generated iCalendar documents.
const DefaultProductID = "-//Togather//Conference Directory//EN"

// ICS renders ev as an iCalendar document holding a single VEVENT. Start and
// end instants are resolved exactly as for the quick-add link.
func (b *Builder) ICS(ev Event, prodID string, now time.Time) ([]byte, error) {
	start, end, err := b.Span(ev)
	if err != nil {
		return nil, err
	}
	if prodID == "" {
		prodID = DefaultProductID
	}
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	uid := ev.ID
	if uid == "" {
		uid = FormatCompactUTC(start) + "-" + FormatCompactUTC(end)
	}

	vevent := cal.AddEvent(uid)
	vevent.SetDtStampTime(now.UTC())
	vevent.SetStartAt(start.UTC())
	vevent.SetEndAt(end.UTC())
	vevent.SetSummary(ev.Title)
	vevent.SetDescription(Details(ev))
	if loc := Location(ev); loc != "" {
		vevent.SetLocation(loc)
	}
	if link := firstNonEmpty(ev.RegistrationURL, ev.Link); link != "" {
		vevent.SetURL(link)
	}

	return []byte(cal.Serialize()), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
