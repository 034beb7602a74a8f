// Package seed loads the demo conference and event listings.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoData []byte

type Conference struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	City            string   `yaml:"city"`
	Country         string   `yaml:"country"`
	Location        string   `yaml:"location"`
	StartDate       string   `yaml:"startDate"`
	EndDate         string   `yaml:"endDate"`
	Description     string   `yaml:"description"`
	FullDescription string   `yaml:"fullDescription"`
	WebsiteURL      string   `yaml:"websiteUrl"`
	BannerImage     string   `yaml:"bannerImage"`
	Logo            string   `yaml:"logo"`
	Organizer       string   `yaml:"organizer"`
	Tags            []string `yaml:"tags"`
	Status          string   `yaml:"status"`
}

type Event struct {
	ID              string   `yaml:"id"`
	ConferenceID    string   `yaml:"conferenceId"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Category        string   `yaml:"category"`
	Status          string   `yaml:"status"`
	Date            string   `yaml:"date"`
	StartTime       string   `yaml:"startTime"`
	EndTime         string   `yaml:"endTime"`
	VenueName       string   `yaml:"venueName"`
	LocationAddress string   `yaml:"locationAddress"`
	LocationName    string   `yaml:"locationName"`
	Host            string   `yaml:"host"`
	Capacity        *int     `yaml:"capacity"`
	RegistrationURL string   `yaml:"registrationUrl"`
	Link            string   `yaml:"link"`
	Image           string   `yaml:"image"`
	Tags            []string `yaml:"tags"`
}

type Dataset struct {
	Conferences []Conference `yaml:"conferences"`
	Events      []Event      `yaml:"events"`
}

// Demo returns the built-in dataset.
func Demo() (*Dataset, error) {
	return Parse(demoData)
}

// Load reads a dataset file; an empty path selects the built-in one.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Demo()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	return &ds, nil
}

type ConferenceService interface {
	List(ctx context.Context, filters conferences.Filters) ([]conferences.Conference, error)
	Create(ctx context.Context, input conferences.Input) (*conferences.Conference, error)
	Validate(input conferences.Input) error
}

type EventService interface {
	Create(ctx context.Context, input events.Input) (*events.Event, error)
	Validate(ctx context.Context, input events.Input, pending ...string) error
}

// Result counts what Apply did.
type Result struct {
	Conferences int
	Events      int
	Skipped     int
}

type Seeder struct {
	conferences ConferenceService
	events      EventService
	logger      zerolog.Logger
}

func NewSeeder(conferences ConferenceService, events EventService, logger zerolog.Logger) *Seeder {
	return &Seeder{
		conferences: conferences,
		events:      events,
		logger:      logger.With().Str("component", "seed").Logger(),
	}
}

// Apply creates every listing of ds through the domain services. Listings
// whose id already exists are skipped, so Apply can be rerun. The whole
// dataset is validated first; an invalid listing aborts before any write.
func (s *Seeder) Apply(ctx context.Context, ds *Dataset) (Result, error) {
	var result Result
	if err := s.check(ctx, ds); err != nil {
		return result, err
	}

	for _, c := range ds.Conferences {
		_, err := s.conferences.Create(ctx, c.input())
		switch {
		case errors.Is(err, conferences.ErrAlreadyExists):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("seed conference %s: %w", c.ID, err)
		default:
			result.Conferences++
		}
	}

	for _, e := range ds.Events {
		_, err := s.events.Create(ctx, e.input())
		switch {
		case errors.Is(err, events.ErrAlreadyExists):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("seed event %s: %w", e.ID, err)
		default:
			result.Events++
		}
	}

	s.logger.Info().
		Int("conferences", result.Conferences).
		Int("events", result.Events).
		Int("skipped", result.Skipped).
		Msg("seed applied")
	return result, nil
}

func (s *Seeder) check(ctx context.Context, ds *Dataset) error {
	pending := make([]string, 0, len(ds.Conferences))
	for _, c := range ds.Conferences {
		if err := s.conferences.Validate(c.input()); err != nil {
			return fmt.Errorf("seed conference %s: %w", c.ID, err)
		}
		pending = append(pending, c.ID)
	}
	for _, e := range ds.Events {
		if err := s.events.Validate(ctx, e.input(), pending...); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ApplyIfEmpty seeds only a directory without any conference.
func (s *Seeder) ApplyIfEmpty(ctx context.Context, ds *Dataset) (Result, bool, error) {
	existing, err := s.conferences.List(ctx, conferences.Filters{})
	if err != nil {
		return Result{}, false, fmt.Errorf("check existing conferences: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Debug().Int("conferences", len(existing)).Msg("directory not empty, skipping seed")
		return Result{}, false, nil
	}
	result, err := s.Apply(ctx, ds)
	return result, err == nil, err
}

func (c Conference) input() conferences.Input {
	return conferences.Input{
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
		Status:          conferences.Status(c.Status),
	}
}

func (e Event) input() events.Input {
	return events.Input{
		ID:              e.ID,
		ConferenceID:    e.ConferenceID,
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		Status:          conferences.Status(e.Status),
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
