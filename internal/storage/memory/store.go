// Package memory is the fallback store used when no database is configured or
// reachable. Data lives in maps and is optionally mirrored to a JSON snapshot
// file so a demo deployment survives restarts.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/rs/zerolog"
)

type Store struct {
	mu          sync.RWMutex
	conferences map[string]conferences.Conference
	events      map[string]events.Event
	users       map[string]users.User

	path   string
	logger zerolog.Logger
	now    func() time.Time
}

type snapshot struct {
	Conferences []conferences.Conference `json:"conferences"`
	Events      []events.Event           `json:"events"`
	Users       []users.User             `json:"users"`
}

// New returns an empty store without persistence.
func New(logger zerolog.Logger) *Store {
	return &Store{
		conferences: make(map[string]conferences.Conference),
		events:      make(map[string]events.Event),
		users:       make(map[string]users.User),
		logger:      logger.With().Str("component", "memory_store").Logger(),
		now:         time.Now,
	}
}

// Open returns a store mirrored to path. An existing snapshot is loaded; a
// missing one is created on the first write.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := New(logger)
	s.path = path
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info().Str("path", path).Msg("no snapshot yet, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for _, c := range snap.Conferences {
		s.conferences[c.ID] = c
	}
	for _, e := range snap.Events {
		s.events[e.ID] = e
	}
	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	s.logger.Info().
		Str("path", path).
		Int("conferences", len(s.conferences)).
		Int("events", len(s.events)).
		Int("users", len(s.users)).
		Msg("snapshot loaded")
	return s, nil
}

func (s *Store) Conferences() conferences.Repository {
	return &ConferenceRepository{store: s}
}

func (s *Store) Events() events.Repository {
	return &EventRepository{store: s}
}

func (s *Store) Users() users.Repository {
	return &UserRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() {}

// Path is the snapshot file, or "" when the store is not persisted.
func (s *Store) Path() string {
	return s.path
}

// persist writes the snapshot. Callers hold the write lock, which also
// serializes file writes.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}

	snap := snapshot{
		Conferences: make([]conferences.Conference, 0, len(s.conferences)),
		Events:      make([]events.Event, 0, len(s.events)),
		Users:       make([]users.User, 0, len(s.users)),
	}
	for _, c := range s.conferences {
		snap.Conferences = append(snap.Conferences, c)
	}
	for _, e := range s.events {
		snap.Events = append(snap.Events, e)
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func containsFold(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
