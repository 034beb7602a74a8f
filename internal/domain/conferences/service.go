package conferences

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/ids"
	"github.com/Togather-Foundation/confdir/internal/sanitize"
	"github.com/Togather-Foundation/confdir/internal/validation"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "conferences").Logger(),
	}
}

// Input is the writable shape of a conference.
type Input struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name" validate:"required,max=200"`
	City            string   `json:"city" validate:"max=100"`
	Country         string   `json:"country" validate:"max=100"`
	Location        string   `json:"location" validate:"max=200"`
	StartDate       string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string   `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Description     string   `json:"description" validate:"max=2000"`
	FullDescription string   `json:"fullDescription,omitempty" validate:"max=20000"`
	WebsiteURL      string   `json:"websiteUrl,omitempty"`
	BannerImage     string   `json:"bannerImage,omitempty"`
	Logo            string   `json:"logo,omitempty"`
	Organizer       string   `json:"organizer,omitempty" validate:"max=200"`
	Tags            []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Status          Status   `json:"status,omitempty" validate:"omitempty,oneof=Draft Published"`
}

// Patch carries a partial update; nil fields are left as they are.
type Patch struct {
	Name            *string   `json:"name,omitempty"`
	City            *string   `json:"city,omitempty"`
	Country         *string   `json:"country,omitempty"`
	Location        *string   `json:"location,omitempty"`
	StartDate       *string   `json:"startDate,omitempty"`
	EndDate         *string   `json:"endDate,omitempty"`
	Description     *string   `json:"description,omitempty"`
	FullDescription *string   `json:"fullDescription,omitempty"`
	WebsiteURL      *string   `json:"websiteUrl,omitempty"`
	BannerImage     *string   `json:"bannerImage,omitempty"`
	Logo            *string   `json:"logo,omitempty"`
	Organizer       *string   `json:"organizer,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	Status          *Status   `json:"status,omitempty"`
}

// List returns matching conferences ordered by start date, then name.
func (s *Service) List(ctx context.Context, filters Filters) ([]Conference, error) {
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	sortConferences(items)
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Conference, error) {
	if err := ids.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, ids.Normalize(id))
}

func (s *Service) Create(ctx context.Context, input Input) (*Conference, error) {
	conference, err := s.build(input)
	if err != nil {
		return nil, err
	}

	if conference.ID == "" {
		id, err := ids.NewULID()
		if err != nil {
			return nil, fmt.Errorf("mint conference id: %w", err)
		}
		conference.ID = id
	}

	created, err := s.repo.Create(ctx, conference)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("conference_id", created.ID).
		Str("status", string(created.Status)).
		Msg("conference created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Conference, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	input := inputFrom(*existing)
	patch.applyTo(&input)

	conference, err := s.build(input)
	if err != nil {
		return nil, err
	}
	conference.ID = existing.ID
	conference.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, conference)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("conference_id", updated.ID).Msg("conference updated")
	return updated, nil
}

// Delete removes a conference. Its side-events are detached (kept as
// independent listings) or deleted along with it, per mode.
func (s *Service) Delete(ctx context.Context, id string, mode DeleteMode) error {
	if err := ids.ValidateID(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ids.Normalize(id), mode); err != nil {
		return err
	}
	s.logger.Info().
		Str("conference_id", id).
		Bool("events_deleted", mode == DeleteEvents).
		Msg("conference deleted")
	return nil
}

// Exists reports whether a conference with id is stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Validate reports whether Create would accept input without storing it.
func (s *Service) Validate(input Input) error {
	_, err := s.build(input)
	return err
}

func (s *Service) build(input Input) (Conference, error) {
	input = cleanInput(input)
	if err := validation.Struct(input); err != nil {
		return Conference{}, err
	}
	if input.ID != "" {
		if err := ids.ValidateID(input.ID); err != nil {
			return Conference{}, validation.Error{Field: "id", Message: "must be a ULID or slug"}
		}
	}
	for field, value := range map[string]string{
		"websiteUrl":  input.WebsiteURL,
		"bannerImage": input.BannerImage,
		"logo":        input.Logo,
	} {
		if err := validation.URL(field, value); err != nil {
			return Conference{}, err
		}
	}

	conference := Conference{
		ID:              ids.Normalize(input.ID),
		Name:            input.Name,
		City:            input.City,
		Country:         input.Country,
		Location:        input.Location,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Description:     input.Description,
		FullDescription: input.FullDescription,
		WebsiteURL:      input.WebsiteURL,
		BannerImage:     input.BannerImage,
		Logo:            input.Logo,
		Organizer:       input.Organizer,
		Tags:            input.Tags,
		Status:          input.Status,
	}
	if conference.Status == "" {
		conference.Status = StatusDraft
	}
	if err := Derive(&conference); err != nil {
		return Conference{}, err
	}
	return conference, nil
}

func cleanInput(input Input) Input {
	input.Name = sanitize.Text(input.Name)
	input.City = sanitize.Text(input.City)
	input.Country = sanitize.Text(input.Country)
	input.Location = sanitize.Text(input.Location)
	input.StartDate = strings.TrimSpace(input.StartDate)
	input.EndDate = strings.TrimSpace(input.EndDate)
	input.Description = sanitize.Text(input.Description)
	input.FullDescription = sanitize.RichText(input.FullDescription)
	input.WebsiteURL = strings.TrimSpace(input.WebsiteURL)
	input.BannerImage = strings.TrimSpace(input.BannerImage)
	input.Logo = strings.TrimSpace(input.Logo)
	input.Organizer = sanitize.Text(input.Organizer)
	input.Tags = sanitize.Tags(input.Tags)
	return input
}

// Derive fills the display fields computed from the stored ones: location,
// date range, month and year. EndDate defaults to StartDate.
func Derive(c *Conference) error {
	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return validation.Error{Field: "startDate", Message: "must match 2006-01-02"}
	}
	if c.EndDate == "" {
		c.EndDate = c.StartDate
	}
	end, err := time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return validation.Error{Field: "endDate", Message: "must match 2006-01-02"}
	}
	if end.Before(start) {
		return validation.Error{Field: "endDate", Message: "must not be before startDate"}
	}

	c.DateRange = FormatDateRange(start, end)
	c.Month = start.Format("Jan")
	c.Year = start.Year()
	if c.Location == "" {
		c.Location = joinNonEmpty(", ", c.City, c.Country)
	}
	return nil
}

// FormatDateRange renders "Dec 4 - Dec 5", or "Dec 4" for a single day.
func FormatDateRange(start, end time.Time) string {
	if start.Equal(end) {
		return start.Format("Jan 2")
	}
	return start.Format("Jan 2") + " - " + end.Format("Jan 2")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func inputFrom(c Conference) Input {
	return Input{
		ID:              c.ID,
		Name:            c.Name,
		City:            c.City,
		Country:         c.Country,
		Location:        c.Location,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		Description:     c.Description,
		FullDescription: c.FullDescription,
		WebsiteURL:      c.WebsiteURL,
		BannerImage:     c.BannerImage,
		Logo:            c.Logo,
		Organizer:       c.Organizer,
		Tags:            c.Tags,
		Status:          c.Status,
	}
}

func (p Patch) applyTo(in *Input) {
	setString(&in.Name, p.Name)
	setString(&in.City, p.City)
	setString(&in.Country, p.Country)
	setString(&in.StartDate, p.StartDate)
	setString(&in.EndDate, p.EndDate)
	setString(&in.Description, p.Description)
	setString(&in.FullDescription, p.FullDescription)
	setString(&in.WebsiteURL, p.WebsiteURL)
	setString(&in.BannerImage, p.BannerImage)
	setString(&in.Logo, p.Logo)
	setString(&in.Organizer, p.Organizer)
	if p.Location != nil {
		in.Location = *p.Location
	} else if p.City != nil || p.Country != nil {
		// Recompose the display location from the new city/country.
		in.Location = ""
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func sortConferences(items []Conference) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].StartDate != items[j].StartDate {
			return items[i].StartDate < items[j].StartDate
		}
		return items[i].Name < items[j].Name
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

// ParseFilters reads year, month (1-12), q and status query parameters.
func ParseFilters(values url.Values) (Filters, error) {
	filters := Filters{Query: strings.TrimSpace(values.Get("q"))}

	if raw := strings.TrimSpace(values.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1970 || year > 9999 {
			return filters, FilterError{Field: "year", Message: "must be a four digit year"}
		}
		filters.Year = year
	}
	if raw := strings.TrimSpace(values.Get("month")); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			return filters, FilterError{Field: "month", Message: "must be between 1 and 12"}
		}
		filters.Month = time.Month(month)
	}
	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			return filters, FilterError{Field: "status", Message: "must be Draft or Published"}
		}
		filters.Status = status
	}
	return filters, nil
}
