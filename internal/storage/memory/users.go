package memory

import (
	"context"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) List(_ context.Context, filters users.Filters) ([]users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]users.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		if filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if filters.Status != "" && u.Status != filters.Status {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if u, ok := r.byEmail(email); ok {
		return &u, nil
	}
	return nil, users.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, u users.User) (*users.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.byEmail(u.Email); taken {
		return nil, users.ErrEmailTaken
	}
	now := r.store.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.store.users[u.ID] = u
	if err := r.store.persist(); err != nil {
		delete(r.store.users, u.ID)
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(_ context.Context, u users.User) (*users.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.users[u.ID]
	if !ok {
		return nil, users.ErrNotFound
	}
	if other, taken := r.byEmail(u.Email); taken && other.ID != u.ID {
		return nil, users.ErrEmailTaken
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.store.now().UTC()
	r.store.users[u.ID] = u
	if err := r.store.persist(); err != nil {
		r.store.users[u.ID] = existing
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.users[id]
	if !ok {
		return users.ErrNotFound
	}
	delete(r.store.users, id)
	if err := r.store.persist(); err != nil {
		r.store.users[id] = existing
		return err
	}
	return nil
}

func (r *UserRepository) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok {
		return users.ErrNotFound
	}
	u.LastActive = &at
	r.store.users[id] = u
	return r.store.persist()
}

// byEmail expects the caller to hold the lock.
func (r *UserRepository) byEmail(email string) (users.User, bool) {
	email = strings.TrimSpace(email)
	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return users.User{}, false
}
