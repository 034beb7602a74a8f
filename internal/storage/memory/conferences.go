package memory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
)

var _ conferences.Repository = (*ConferenceRepository)(nil)

type ConferenceRepository struct {
	store *Store
}

func (r *ConferenceRepository) List(_ context.Context, filters conferences.Filters) ([]conferences.Conference, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]conferences.Conference, 0, len(r.store.conferences))
	for _, c := range r.store.conferences {
		if !matchConference(c, filters) {
			continue
		}
		out = append(out, cloneConference(c))
	}
	return out, nil
}

func (r *ConferenceRepository) GetByID(_ context.Context, id string) (*conferences.Conference, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.conferences[id]
	if !ok {
		return nil, conferences.ErrNotFound
	}
	c = cloneConference(c)
	return &c, nil
}

func (r *ConferenceRepository) Create(_ context.Context, c conferences.Conference) (*conferences.Conference, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.conferences[c.ID]; exists {
		return nil, conferences.ErrAlreadyExists
	}
	now := r.store.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c = cloneConference(c)
	r.store.conferences[c.ID] = c
	if err := r.store.persist(); err != nil {
		delete(r.store.conferences, c.ID)
		return nil, err
	}
	return &c, nil
}

func (r *ConferenceRepository) Update(_ context.Context, c conferences.Conference) (*conferences.Conference, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.conferences[c.ID]
	if !ok {
		return nil, conferences.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.store.now().UTC()
	c = cloneConference(c)
	r.store.conferences[c.ID] = c
	if err := r.store.persist(); err != nil {
		r.store.conferences[c.ID] = existing
		return nil, err
	}
	return &c, nil
}

func (r *ConferenceRepository) Delete(_ context.Context, id string, mode conferences.DeleteMode) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.conferences[id]; !ok {
		return conferences.ErrNotFound
	}
	delete(r.store.conferences, id)

	now := r.store.now().UTC()
	for eventID, e := range r.store.events {
		if e.ConferenceID != id {
			continue
		}
		if mode == conferences.DeleteEvents {
			delete(r.store.events, eventID)
			continue
		}
		e.ConferenceID = ""
		e.UpdatedAt = now
		r.store.events[eventID] = e
	}
	return r.store.persist()
}

func matchConference(c conferences.Conference, f conferences.Filters) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Year != 0 || f.Month != 0 {
		start, err := time.Parse("2006-01-02", c.StartDate)
		if err != nil {
			return false
		}
		if f.Year != 0 && start.Year() != f.Year {
			return false
		}
		if f.Month != 0 && start.Month() != f.Month {
			return false
		}
	}
	return containsFold(f.Query,
		c.Name, c.City, c.Country, c.Location, c.Description, c.Organizer,
		strings.Join(c.Tags, " "), strconv.Itoa(c.Year),
	)
}

func cloneConference(c conferences.Conference) conferences.Conference {
	c.Tags = cloneStrings(c.Tags)
	return c
}
