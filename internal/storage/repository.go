// Package storage selects the backing store for the directory: PostgreSQL
// when it is configured and usable, the in-memory store otherwise.
package storage

import (
	"context"

	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Conferences() conferences.Repository
	Events() events.Repository
	Users() users.Repository

	Ping(ctx context.Context) error
	Close()
}

// ConnectionStatus describes the database as seen at startup.
type ConnectionStatus string

const (
	// StatusConnected means PostgreSQL is serving all data.
	StatusConnected ConnectionStatus = "connected"
	// StatusDemo means no database is configured; the memory store serves.
	StatusDemo ConnectionStatus = "demo"
	// StatusMissingTables means the database answered but is not migrated.
	StatusMissingTables ConnectionStatus = "missing_tables"
	// StatusError means the database is configured but unreachable.
	StatusError ConnectionStatus = "error"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)
