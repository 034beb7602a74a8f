package memory

import (
	"context"
	"strings"

	"github.com/Togather-Foundation/confdir/internal/domain/events"
)

var _ events.Repository = (*EventRepository)(nil)

type EventRepository struct {
	store *Store
}

func (r *EventRepository) List(_ context.Context, filters events.Filters) ([]events.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]events.Event, 0, len(r.store.events))
	for _, e := range r.store.events {
		if !matchEvent(e, filters) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	return out, nil
}

func (r *EventRepository) GetByID(_ context.Context, id string) (*events.Event, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	e = cloneEvent(e)
	return &e, nil
}

func (r *EventRepository) Create(_ context.Context, e events.Event) (*events.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.events[e.ID]; exists {
		return nil, events.ErrAlreadyExists
	}
	now := r.store.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e = cloneEvent(e)
	r.store.events[e.ID] = e
	if err := r.store.persist(); err != nil {
		delete(r.store.events, e.ID)
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) Update(_ context.Context, e events.Event) (*events.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.events[e.ID]
	if !ok {
		return nil, events.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = r.store.now().UTC()
	e = cloneEvent(e)
	r.store.events[e.ID] = e
	if err := r.store.persist(); err != nil {
		r.store.events[e.ID] = existing
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.events[id]
	if !ok {
		return events.ErrNotFound
	}
	delete(r.store.events, id)
	if err := r.store.persist(); err != nil {
		r.store.events[id] = existing
		return err
	}
	return nil
}

func matchEvent(e events.Event, f events.Filters) bool {
	if f.ConferenceID != "" && e.ConferenceID != f.ConferenceID {
		return false
	}
	if f.IndependentOnly && e.ConferenceID != "" {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	// Dates are YYYY-MM-DD, so string order is calendar order.
	if f.From != "" && e.Date < f.From {
		return false
	}
	if f.To != "" && e.Date > f.To {
		return false
	}
	return containsFold(f.Query,
		e.Title, e.Description, e.Category, e.Host, e.VenueName, e.LocationName,
		strings.Join(e.Tags, " "),
	)
}

func cloneEvent(e events.Event) events.Event {
	e.Tags = cloneStrings(e.Tags)
	if e.Capacity != nil {
		capacity := *e.Capacity
		e.Capacity = &capacity
	}
	return e
}
