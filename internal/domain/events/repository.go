package events

import (
	"context"
	"errors"
	"time"

	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrAlreadyExists = errors.New("event id already exists")
)

type Status = conferences.Status

// Event is a side-event of a conference, or an independent event when
// ConferenceID is empty.
type Event struct {
	ID           string
	ConferenceID string

	Title       string
	Description string
	Category    string
	Status      Status

	Date      string
	StartTime string
	EndTime   string

	VenueName       string
	LocationAddress string
	LocationName    string

	Host     string
	Capacity *int

	RegistrationURL string
	Link            string
	Image           string
	Tags            []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalendarEvent is the view of e the calendar builder reads.
func (e Event) CalendarEvent() calendar.Event {
	return calendar.Event{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Host:            e.Host,
		VenueName:       e.VenueName,
		LocationAddress: e.LocationAddress,
		RegistrationURL: e.RegistrationURL,
		Link:            e.Link,
		Date:            e.Date,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
	}
}

type Filters struct {
	ConferenceID string
	// IndependentOnly selects events not attached to any conference.
	IndependentOnly bool
	Status          Status
	// From and To bound Date inclusively (YYYY-MM-DD); empty means open.
	From  string
	To    string
	Query string
}

type Repository interface {
	List(ctx context.Context, filters Filters) ([]Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, event Event) (*Event, error)
	Update(ctx context.Context, event Event) (*Event, error)
	Delete(ctx context.Context, id string) error
}
