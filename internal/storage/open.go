package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Togather-Foundation/confdir/internal/storage/memory"
	"github.com/Togather-Foundation/confdir/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Options configures Open.
type Options struct {
	DatabaseURL    string
	MaxConnections int32
	// SnapshotPath mirrors the memory store to a JSON file when set.
	SnapshotPath string
	// ConnectTimeout bounds the initial connect, ping and probe.
	ConnectTimeout time.Duration
}

// Report is the connection status exposed to admins and health checks.
type Report struct {
	Status  ConnectionStatus `json:"status"`
	Backend string           `json:"backend"`
	Detail  string           `json:"detail,omitempty"`
}

// Store is the selected backend together with how it was chosen.
type Store struct {
	Repository

	pool *pgxpool.Pool

	mu     sync.RWMutex
	report Report
}

// Open connects to PostgreSQL when DatabaseURL is set and the schema is in
// place, and falls back to the memory store otherwise. Falling back is not an
// error; the reason is kept in the store's Report.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (*Store, error) {
	log := logger.With().Str("component", "storage").Logger()

	if opts.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, running on the in-memory demo store")
		return openMemory(opts, Report{Status: StatusDemo, Backend: BackendMemory}, log)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, opts.DatabaseURL, opts.MaxConnections)
	if err != nil {
		log.Error().Err(err).Msg("database unreachable, falling back to the in-memory store")
		return openMemory(opts, Report{Status: StatusError, Backend: BackendMemory, Detail: err.Error()}, log)
	}

	if status, detail := classify(postgres.Probe(connectCtx, pool)); status != StatusConnected {
		pool.Close()
		log.Error().Str("status", string(status)).Str("detail", detail).Msg("database not usable, falling back to the in-memory store")
		return openMemory(opts, Report{Status: status, Backend: BackendMemory, Detail: detail}, log)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("connected to postgres")
	return &Store{
		Repository: repo,
		pool:       pool,
		report:     Report{Status: StatusConnected, Backend: BackendPostgres},
	}, nil
}

func openMemory(opts Options, report Report, logger zerolog.Logger) (*Store, error) {
	mem, err := memory.Open(opts.SnapshotPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return &Store{Repository: mem, report: report}, nil
}

// NewStore wraps an already opened repository, for tests and tools.
func NewStore(repo Repository, report Report) *Store {
	return &Store{Repository: repo, report: report}
}

// Pool is the PostgreSQL pool, or nil on the memory store.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Status re-checks a PostgreSQL backend and returns the current report. A
// memory-backed store keeps reporting why it was chosen.
func (s *Store) Status(ctx context.Context) Report {
	if s.pool == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.report
	}

	status, detail := classify(postgres.Probe(ctx, s.pool))
	report := Report{Status: status, Backend: BackendPostgres, Detail: detail}

	s.mu.Lock()
	s.report = report
	s.mu.Unlock()
	return report
}

func classify(err error) (ConnectionStatus, string) {
	switch {
	case err == nil:
		return StatusConnected, ""
	case postgres.IsUndefinedTable(err):
		return StatusMissingTables, "schema missing, run `confdir migrate up`"
	default:
		return StatusError, err.Error()
	}
}
