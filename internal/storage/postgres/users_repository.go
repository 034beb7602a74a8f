package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const userColumns = `u.id, u.name, u.email, u.role, u.status, u.password_hash, u.last_active, u.created_at, u.updated_at`

type userRow struct {
	ID           string
	Name         string
	Email        string
	Role         string
	Status       string
	PasswordHash string
	LastActive   pgtype.Timestamptz
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (row *userRow) targets() []any {
	return []any{
		&row.ID, &row.Name, &row.Email, &row.Role, &row.Status, &row.PasswordHash,
		&row.LastActive, &row.CreatedAt, &row.UpdatedAt,
	}
}

func (row userRow) toDomain() users.User {
	u := users.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         users.Role(row.Role),
		Status:       users.Status(row.Status),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.LastActive.Valid {
		at := row.LastActive.Time
		u.LastActive = &at
	}
	return u
}

func (r *UserRepository) List(ctx context.Context, filters users.Filters) ([]users.User, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT `+userColumns+`
  FROM users u
 WHERE ($1::text = '' OR u.role = $1)
   AND ($2::text = '' OR u.status = $2)
 ORDER BY lower(u.email)
`, string(filters.Role), string(filters.Status))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]users.User, 0)
	for rows.Next() {
		var row userRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*users.User, error) {
	var row userRow
	if err := r.queryer().QueryRow(ctx, query, arg).Scan(row.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u := row.toDomain()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u users.User) (*users.User, error) {
	var row userRow
	err := r.queryer().QueryRow(ctx, `
INSERT INTO users AS u (id, name, email, role, status, password_hash, last_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Status), u.PasswordHash, u.LastActive,
	).Scan(row.targets()...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := row.toDomain()
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, u users.User) (*users.User, error) {
	var row userRow
	err := r.queryer().QueryRow(ctx, `
UPDATE users AS u
   SET name = $2, email = $3, role = $4, status = $5, password_hash = $6, updated_at = now()
 WHERE u.id = $1
RETURNING `+userColumns,
		u.ID, u.Name, u.Email, string(u.Role), string(u.Status), u.PasswordHash,
	).Scan(row.targets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	updated := row.toDomain()
	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE users SET last_active = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *UserRepository) queryer() queryer {
	return pick(r.pool, r.tx)
}
