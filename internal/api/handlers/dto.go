package handlers

import (
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
)

type conferenceResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	City            string     `json:"city,omitempty"`
	Country         string     `json:"country,omitempty"`
	Location        string     `json:"location,omitempty"`
	StartDate       string     `json:"startDate"`
	EndDate         string     `json:"endDate"`
	DateRange       string     `json:"dateRange"`
	Month           string     `json:"month"`
	Year            int        `json:"year"`
	Description     string     `json:"description,omitempty"`
	FullDescription string     `json:"fullDescription,omitempty"`
	WebsiteURL      string     `json:"websiteUrl,omitempty"`
	BannerImage     string     `json:"bannerImage,omitempty"`
	Logo            string     `json:"logo,omitempty"`
	Organizer       string     `json:"organizer,omitempty"`
	Tags            []string   `json:"tags"`
	Status          string     `json:"status"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func newConferenceResponse(c conferences.Conference) conferenceResponse {
	return conferenceResponse{
		ID:              c.ID,
		Name:            c.Name,
		City:            c.City,
		Country:         c.Country,
		Location:        c.Location,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		DateRange:       c.DateRange,
		Month:           c.Month,
		Year:            c.Year,
		Description:     c.Description,
		FullDescription: c.FullDescription,
		WebsiteURL:      c.WebsiteURL,
		BannerImage:     c.BannerImage,
		Logo:            c.Logo,
		Organizer:       c.Organizer,
		Tags:            nonNilStrings(c.Tags),
		Status:          string(c.Status),
		CreatedAt:       optionalTime(c.CreatedAt),
		UpdatedAt:       optionalTime(c.UpdatedAt),
	}
}

func newConferenceResponses(items []conferences.Conference) []conferenceResponse {
	out := make([]conferenceResponse, 0, len(items))
	for _, c := range items {
		out = append(out, newConferenceResponse(c))
	}
	return out
}

type monthGroupResponse struct {
	conferences.MonthOption
	Conferences []conferenceResponse `json:"conferences"`
}

type eventResponse struct {
	ID              string     `json:"id"`
	ConferenceID    string     `json:"conferenceId,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category,omitempty"`
	Status          string     `json:"status"`
	Date            string     `json:"date"`
	StartTime       string     `json:"startTime"`
	EndTime         string     `json:"endTime,omitempty"`
	VenueName       string     `json:"venueName"`
	LocationAddress string     `json:"locationAddress,omitempty"`
	LocationName    string     `json:"locationName,omitempty"`
	Host            string     `json:"host"`
	Capacity        *int       `json:"capacity,omitempty"`
	RegistrationURL string     `json:"registrationUrl,omitempty"`
	Link            string     `json:"link,omitempty"`
	Image           string     `json:"image,omitempty"`
	Tags            []string   `json:"tags"`
	CalendarURL     string     `json:"calendarUrl,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// newEventResponse renders e; calendarURL may be empty when the event time
// cannot be read.
func newEventResponse(e events.Event, calendarURL string) eventResponse {
	return eventResponse{
		ID:              e.ID,
		ConferenceID:    e.ConferenceID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Status:          string(e.Status),
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
		Tags:            nonNilStrings(e.Tags),
		CalendarURL:     calendarURL,
		CreatedAt:       optionalTime(e.CreatedAt),
		UpdatedAt:       optionalTime(e.UpdatedAt),
	}
}

func newEventResponses(service *events.Service, items []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, newEventResponse(e, service.CalendarURL(e)))
	}
	return out
}

type userResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	LastActive *time.Time `json:"lastActive,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

func newUserResponse(u users.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		Status:     string(u.Status),
		LastActive: u.LastActive,
		CreatedAt:  optionalTime(u.CreatedAt),
	}
}

type principalResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newPrincipalResponse(p *users.Principal) principalResponse {
	return principalResponse{ID: p.ID, Name: p.Name, Email: p.Email, Role: string(p.Role)}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
