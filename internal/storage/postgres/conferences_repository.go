package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ conferences.Repository = (*ConferenceRepository)(nil)

type ConferenceRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const conferenceColumns = `
c.id, c.name, c.city, c.country, c.location, c.start_date, c.end_date,
c.description, c.full_description, c.website_url, c.banner_image, c.logo,
c.organizer, c.tags, c.status, c.created_at, c.updated_at`

type conferenceRow struct {
	ID              string
	Name            string
	City            string
	Country         string
	Location        string
	StartDate       time.Time
	EndDate         time.Time
	Description     string
	FullDescription string
	WebsiteURL      string
	BannerImage     string
	Logo            string
	Organizer       string
	Tags            []string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (row *conferenceRow) targets() []any {
	return []any{
		&row.ID, &row.Name, &row.City, &row.Country, &row.Location, &row.StartDate, &row.EndDate,
		&row.Description, &row.FullDescription, &row.WebsiteURL, &row.BannerImage, &row.Logo,
		&row.Organizer, &row.Tags, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	}
}

func (row conferenceRow) toDomain() conferences.Conference {
	c := conferences.Conference{
		ID:              row.ID,
		Name:            row.Name,
		City:            row.City,
		Country:         row.Country,
		Location:        row.Location,
		StartDate:       row.StartDate.Format(dateLayout),
		EndDate:         row.EndDate.Format(dateLayout),
		Description:     row.Description,
		FullDescription: row.FullDescription,
		WebsiteURL:      row.WebsiteURL,
		BannerImage:     row.BannerImage,
		Logo:            row.Logo,
		Organizer:       row.Organizer,
		Tags:            row.Tags,
		Status:          conferences.Status(row.Status),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	// Stored dates are always valid, so Derive cannot fail here.
	_ = conferences.Derive(&c)
	return c
}

func (r *ConferenceRepository) List(ctx context.Context, filters conferences.Filters) ([]conferences.Conference, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+conferenceColumns+`
  FROM conferences c
 WHERE ($1::text = '' OR c.status = $1)
   AND ($2::int = 0 OR EXTRACT(YEAR FROM c.start_date)::int = $2)
   AND ($3::int = 0 OR EXTRACT(MONTH FROM c.start_date)::int = $3)
   AND ($4::text = '' OR
        c.name ILIKE '%' || $4 || '%' OR
        c.city ILIKE '%' || $4 || '%' OR
        c.country ILIKE '%' || $4 || '%' OR
        c.location ILIKE '%' || $4 || '%' OR
        c.description ILIKE '%' || $4 || '%' OR
        c.organizer ILIKE '%' || $4 || '%' OR
        array_to_string(c.tags, ' ') ILIKE '%' || $4 || '%')
 ORDER BY c.start_date ASC, c.name ASC
`,
		string(filters.Status),
		filters.Year,
		int(filters.Month),
		escapeILIKEPattern(filters.Query),
	)
	if err != nil {
		return nil, fmt.Errorf("list conferences: %w", err)
	}
	defer rows.Close()

	items := make([]conferences.Conference, 0)
	for rows.Next() {
		var row conferenceRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan conference: %w", err)
		}
		items = append(items, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conferences: %w", err)
	}
	return items, nil
}

func (r *ConferenceRepository) GetByID(ctx context.Context, id string) (*conferences.Conference, error) {
	var row conferenceRow
	err := r.queryer().QueryRow(ctx, `SELECT `+conferenceColumns+` FROM conferences c WHERE c.id = $1`, id).
		Scan(row.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conferences.ErrNotFound
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

func (r *ConferenceRepository) Create(ctx context.Context, c conferences.Conference) (*conferences.Conference, error) {
	start, end, err := conferenceDates(c)
	if err != nil {
		return nil, err
	}

	var row conferenceRow
	err = r.queryer().QueryRow(ctx, `
INSERT INTO conferences AS c (
  id, name, city, country, location, start_date, end_date, description,
  full_description, website_url, banner_image, logo, organizer, tags, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING `+conferenceColumns,
		c.ID, c.Name, c.City, c.Country, c.Location, start, end, c.Description,
		c.FullDescription, c.WebsiteURL, c.BannerImage, c.Logo, c.Organizer, nonNilStrings(c.Tags), string(c.Status),
	).Scan(row.targets()...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conferences.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert conference: %w", err)
	}
	created := row.toDomain()
	return &created, nil
}

func (r *ConferenceRepository) Update(ctx context.Context, c conferences.Conference) (*conferences.Conference, error) {
	start, end, err := conferenceDates(c)
	if err != nil {
		return nil, err
	}

	var row conferenceRow
	err = r.queryer().QueryRow(ctx, `
UPDATE conferences AS c
   SET name = $2, city = $3, country = $4, location = $5, start_date = $6, end_date = $7,
       description = $8, full_description = $9, website_url = $10, banner_image = $11,
       logo = $12, organizer = $13, tags = $14, status = $15, updated_at = now()
 WHERE c.id = $1
RETURNING `+conferenceColumns,
		c.ID, c.Name, c.City, c.Country, c.Location, start, end, c.Description,
		c.FullDescription, c.WebsiteURL, c.BannerImage, c.Logo, c.Organizer, nonNilStrings(c.Tags), string(c.Status),
	).Scan(row.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conferences.ErrNotFound
		}
		return nil, fmt.Errorf("update conference: %w", err)
	}
	updated := row.toDomain()
	return &updated, nil
}

// Delete removes the conference and, in one transaction, detaches or deletes
// its events.
func (r *ConferenceRepository) Delete(ctx context.Context, id string, mode conferences.DeleteMode) error {
	repo := &Repository{pool: r.pool, tx: r.tx}
	return repo.WithTx(ctx, func(ctx context.Context, txRepo *Repository) error {
		q := pick(txRepo.pool, txRepo.tx)

		var err error
		if mode == conferences.DeleteEvents {
			_, err = q.Exec(ctx, `DELETE FROM events WHERE conference_id = $1`, id)
		} else {
			_, err = q.Exec(ctx, `UPDATE events SET conference_id = NULL, updated_at = now() WHERE conference_id = $1`, id)
		}
		if err != nil {
			return fmt.Errorf("release conference events: %w", err)
		}

		tag, err := q.Exec(ctx, `DELETE FROM conferences WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete conference: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return conferences.ErrNotFound
		}
		return nil
	})
}

func (r *ConferenceRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}

func conferenceDates(c conferences.Conference) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("conference start date: %w", err)
	}
	endValue := c.EndDate
	if endValue == "" {
		endValue = c.StartDate
	}
	end, err := time.Parse(dateLayout, endValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("conference end date: %w", err)
	}
	return start, end, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
