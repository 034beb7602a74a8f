package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const eventColumns = `
e.id, e.conference_id, e.title, e.description, e.category, e.status, e.date,
e.start_time, e.end_time, e.venue_name, e.location_address, e.location_name,
e.host, e.capacity, e.registration_url, e.link, e.image, e.tags,
e.created_at, e.updated_at`

type eventRow struct {
	ID              string
	ConferenceID    *string
	Title           string
	Description     string
	Category        string
	Status          string
	Date            time.Time
	StartTime       string
	EndTime         string
	VenueName       string
	LocationAddress string
	LocationName    string
	Host            string
	Capacity        *int
	RegistrationURL string
	Link            string
	Image           string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (row *eventRow) targets() []any {
	return []any{
		&row.ID, &row.ConferenceID, &row.Title, &row.Description, &row.Category, &row.Status, &row.Date,
		&row.StartTime, &row.EndTime, &row.VenueName, &row.LocationAddress, &row.LocationName,
		&row.Host, &row.Capacity, &row.RegistrationURL, &row.Link, &row.Image, &row.Tags,
		&row.CreatedAt, &row.UpdatedAt,
	}
}

func (row eventRow) toDomain() events.Event {
	return events.Event{
		ID:              row.ID,
		ConferenceID:    derefString(row.ConferenceID),
		Title:           row.Title,
		Description:     row.Description,
		Category:        row.Category,
		Status:          conferences.Status(row.Status),
		Date:            row.Date.Format(dateLayout),
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		VenueName:       row.VenueName,
		LocationAddress: row.LocationAddress,
		LocationName:    row.LocationName,
		Host:            row.Host,
		Capacity:        row.Capacity,
		RegistrationURL: row.RegistrationURL,
		Link:            row.Link,
		Image:           row.Image,
		Tags:            row.Tags,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	var from, to *time.Time
	for _, bound := range []struct {
		raw string
		dst **time.Time
	}{{filters.From, &from}, {filters.To, &to}} {
		if bound.raw == "" {
			continue
		}
		value, err := time.Parse(dateLayout, bound.raw)
		if err != nil {
			return nil, fmt.Errorf("event date filter: %w", err)
		}
		*bound.dst = &value
	}

	rows, err := r.queryer().Query(ctx, `
SELECT `+eventColumns+`
  FROM events e
 WHERE ($1::text = '' OR e.conference_id = $1)
   AND (NOT $2::bool OR e.conference_id IS NULL)
   AND ($3::text = '' OR e.status = $3)
   AND ($4::date IS NULL OR e.date >= $4)
   AND ($5::date IS NULL OR e.date <= $5)
   AND ($6::text = '' OR
        e.title ILIKE '%' || $6 || '%' OR
        e.description ILIKE '%' || $6 || '%' OR
        e.category ILIKE '%' || $6 || '%' OR
        e.host ILIKE '%' || $6 || '%' OR
        e.venue_name ILIKE '%' || $6 || '%' OR
        e.location_name ILIKE '%' || $6 || '%' OR
        array_to_string(e.tags, ' ') ILIKE '%' || $6 || '%')
 ORDER BY e.date ASC, e.start_time ASC, e.id ASC
`,
		filters.ConferenceID,
		filters.IndependentOnly,
		string(filters.Status),
		from,
		to,
		escapeILIKEPattern(filters.Query),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		var row eventRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	var row eventRow
	err := r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id).
		Scan(row.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e := row.toDomain()
	return &e, nil
}

func (r *EventRepository) Create(ctx context.Context, e events.Event) (*events.Event, error) {
	date, err := time.Parse(dateLayout, e.Date)
	if err != nil {
		return nil, fmt.Errorf("event date: %w", err)
	}

	var row eventRow
	err = r.queryer().QueryRow(ctx, `
INSERT INTO events AS e (
  id, conference_id, title, description, category, status, date, start_time, end_time,
  venue_name, location_address, location_name, host, capacity, registration_url, link, image, tags
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING `+eventColumns,
		e.ID, nullableString(e.ConferenceID), e.Title, e.Description, e.Category, string(e.Status), date,
		e.StartTime, e.EndTime, e.VenueName, e.LocationAddress, e.LocationName, e.Host, e.Capacity,
		e.RegistrationURL, e.Link, e.Image, nonNilStrings(e.Tags),
	).Scan(row.targets()...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, events.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}
	created := row.toDomain()
	return &created, nil
}

func (r *EventRepository) Update(ctx context.Context, e events.Event) (*events.Event, error) {
	date, err := time.Parse(dateLayout, e.Date)
	if err != nil {
		return nil, fmt.Errorf("event date: %w", err)
	}

	var row eventRow
	err = r.queryer().QueryRow(ctx, `
UPDATE events AS e
   SET conference_id = $2, title = $3, description = $4, category = $5, status = $6, date = $7,
       start_time = $8, end_time = $9, venue_name = $10, location_address = $11,
       location_name = $12, host = $13, capacity = $14, registration_url = $15, link = $16,
       image = $17, tags = $18, updated_at = now()
 WHERE e.id = $1
RETURNING `+eventColumns,
		e.ID, nullableString(e.ConferenceID), e.Title, e.Description, e.Category, string(e.Status), date,
		e.StartTime, e.EndTime, e.VenueName, e.LocationAddress, e.LocationName, e.Host, e.Capacity,
		e.RegistrationURL, e.Link, e.Image, nonNilStrings(e.Tags),
	).Scan(row.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	updated := row.toDomain()
	return &updated, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
