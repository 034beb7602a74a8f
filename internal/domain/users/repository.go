package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("user is not active")
	ErrNotInvited         = errors.New("no pending invitation")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleEditor Role = "Editor"
	RoleViewer Role = "Viewer"
)

// CanEdit reports whether the role may change listings.
func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleEditor
}

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusInvited  Status = "Invited"
)

type User struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	Status       Status
	PasswordHash string
	LastActive   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Filters struct {
	Role   Role
	Status Status
}

type Repository interface {
	List(ctx context.Context, filters Filters) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
	Update(ctx context.Context, user User) (*User, error)
	Delete(ctx context.Context, id string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}
