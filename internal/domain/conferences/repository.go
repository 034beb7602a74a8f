package conferences

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("conference not found")
	ErrAlreadyExists = errors.New("conference id already exists")
)

// Status is the publication state shared by conferences and events.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Conference struct {
	ID       string
	Name     string
	City     string
	Country  string
	Location string

	StartDate string
	EndDate   string
	DateRange string
	Month     string
	Year      int

	Description     string
	FullDescription string
	WebsiteURL      string
	BannerImage     string
	Logo            string
	Organizer       string
	Tags            []string
	Status          Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filters struct {
	Status Status
	Year   int
	// Month is 1-12; zero matches every month.
	Month time.Month
	Query string
}

// DeleteMode selects what happens to side-events of a deleted conference.
type DeleteMode int

const (
	// DetachEvents keeps the events as independent listings.
	DetachEvents DeleteMode = iota
	// DeleteEvents removes them together with the conference.
	DeleteEvents
)

type Repository interface {
	List(ctx context.Context, filters Filters) ([]Conference, error)
	GetByID(ctx context.Context, id string) (*Conference, error)
	Create(ctx context.Context, conference Conference) (*Conference, error)
	Update(ctx context.Context, conference Conference) (*Conference, error)
	Delete(ctx context.Context, id string, mode DeleteMode) error
}
