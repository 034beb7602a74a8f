package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/ids"
	"github.com/Togather-Foundation/confdir/internal/sanitize"
	"github.com/Togather-Foundation/confdir/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultRole is assigned when a user is created without one.
	DefaultRole = RoleViewer

	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// DemoUserID is the subject issued to the configured demo admin.
	DemoUserID = "demo-admin"
)

// DemoCredential is a fixed admin login that works without any stored user,
// for demo deployments running on the in-memory store. Empty disables it.
type DemoCredential struct {
	Email    string
	Password string
}

func (d DemoCredential) enabled() bool {
	return d.Email != "" && d.Password != ""
}

// Principal is an authenticated admin.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

type Service struct {
	repo       Repository
	demo       DemoCredential
	bcryptCost int
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func NewService(repo Repository, demo DemoCredential, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		demo:       DemoCredential{Email: strings.ToLower(strings.TrimSpace(demo.Email)), Password: demo.Password},
		bcryptCost: BcryptCost,
		logger:     logger.With().Str("component", "users").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=Admin Editor Viewer"`
	Status   Status `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive Invited"`
	Password string `json:"password,omitempty"`
}

type Patch struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Status   *Status `json:"status,omitempty"`
	Password *string `json:"password,omitempty"`
}

type patchCheck struct {
	Name   string `json:"name" validate:"required,max=100"`
	Email  string `json:"email" validate:"required,email,max=254"`
	Role   Role   `json:"role" validate:"required,oneof=Admin Editor Viewer"`
	Status Status `json:"status" validate:"required,oneof=Active Inactive Invited"`
}

func (s *Service) List(ctx context.Context, filters Filters) ([]User, error) {
	items, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Email < items[j].Email
	})
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if err := ids.ValidateID(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, ids.Normalize(id))
}

// Create stores a new user. Without a password the user is Invited and cannot
// log in until one is set.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	input.Name = sanitize.Text(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	user := User{
		Name:   input.Name,
		Email:  input.Email,
		Role:   input.Role,
		Status: input.Status,
	}
	if user.Role == "" {
		user.Role = DefaultRole
	}
	if input.Password != "" {
		hash, err := s.hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		if user.Status == "" {
			user.Status = StatusActive
		}
	} else if user.Status == "" {
		user.Status = StatusInvited
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint user id: %w", err)
	}
	user.ID = id

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", created.ID).
		Str("role", string(created.Role)).
		Str("status", string(created.Status)).
		Msg("user created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = sanitize.Text(*patch.Name)
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email != user.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("check email: %w", err)
			}
		}
		user.Email = email
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Status != nil {
		user.Status = *patch.Status
	}
	if err := validation.Struct(patchCheck{Name: user.Name, Email: user.Email, Role: user.Role, Status: user.Status}); err != nil {
		return nil, err
	}
	if patch.Password != nil {
		hash, err := s.hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		if user.Status == StatusInvited {
			user.Status = StatusActive
		}
	}

	updated, err := s.repo.Update(ctx, *user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", updated.ID).Msg("user updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := ids.ValidateID(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ids.Normalize(id)); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	return nil
}

// AcceptInvite completes the signup of an Invited user: it sets the password,
// optionally replaces the name and makes the account Active. Emails that
// were never invited, or whose invitation was already used, get ErrNotInvited.
func (s *Service) AcceptInvite(ctx context.Context, email, name, password string) (*User, error) {
	email = normalizeEmail(email)
	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotInvited
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.Status != StatusInvited {
		return nil, ErrNotInvited
	}

	if name = sanitize.Text(name); name != "" {
		user.Name = name
	}
	user.Status = StatusActive
	if err := validation.Struct(patchCheck{Name: user.Name, Email: user.Email, Role: user.Role, Status: user.Status}); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	updated, err := s.repo.Update(ctx, *user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", updated.ID).Str("role", string(updated.Role)).Msg("invitation accepted")
	return updated, nil
}

// Authenticate checks an email/password pair. The configured demo credential
// is accepted first; otherwise the user must exist, be Active and match the
// stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.demo.enabled() && email == s.demo.Email &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.demo.Password)) == 1 {
		s.logger.Info().Str("email", email).Msg("demo admin login")
		return &Principal{ID: DemoUserID, Name: "Demo Admin", Email: email, Role: RoleAdmin}, nil
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return nil, ErrInactive
	}

	if err := s.repo.TouchLastActive(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last activity")
	}
	return &Principal{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

// Principal resolves a token subject back to the admin it was issued to.
func (s *Service) Principal(ctx context.Context, id string) (*Principal, error) {
	if id == DemoUserID && s.demo.enabled() {
		return &Principal{ID: DemoUserID, Name: "Demo Admin", Email: s.demo.Email, Role: RoleAdmin}, nil
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Status != StatusActive {
		return nil, ErrInactive
	}
	return &Principal{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

// Bootstrap makes sure an Active admin exists for email, creating it with
// password when missing. Existing users are left untouched.
func (s *Service) Bootstrap(ctx context.Context, name, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("check admin user: %w", err)
	}
	if name == "" {
		name = "Administrator"
	}
	_, err := s.Create(ctx, CreateInput{
		Name:     name,
		Email:    email,
		Role:     RoleAdmin,
		Status:   StatusActive,
		Password: password,
	})
	if err != nil {
		return false, fmt.Errorf("create admin user: %w", err)
	}
	return true, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", validation.Error{Field: "password", Message: err.Error()}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
