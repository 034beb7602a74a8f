package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Togather-Foundation/confdir/internal/metrics"
	"github.com/Togather-Foundation/confdir/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Check outcomes, from best to worst.
const (
	checkPass = "pass"
	checkWarn = "warn"
	checkFail = "fail"
)

const (
	healthTimeout = 5 * time.Second
	readyTimeout  = 2 * time.Second
)

// HealthCheck is the document served on /health.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// schemaVersionFunc reads the newest golang-migrate version row.
type schemaVersionFunc func(ctx context.Context) (version int64, dirty bool, err error)

// HealthChecker reports on the store the server runs on.
type HealthChecker struct {
	store         StatusReporter
	schemaVersion schemaVersionFunc
	version       string
	gitCommit     string
}

// NewHealthChecker checks store, and the migration state when pool is not nil
// (the memory store has no pool).
func NewHealthChecker(store StatusReporter, pool *pgxpool.Pool, version, gitCommit string) *HealthChecker {
	h := &HealthChecker{store: store, version: version, gitCommit: gitCommit}
	if pool != nil {
		h.schemaVersion = func(ctx context.Context) (int64, bool, error) {
			var v int64
			var dirty bool
			err := pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&v, &dirty)
			return v, dirty, err
		}
	}
	return h
}

// Health serves the detailed health document. Any failing check makes the
// server unhealthy (503); warnings make it degraded.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "shutting_down"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		checks := map[string]CheckResult{"storage": h.checkStorage(ctx)}
		if h.schemaVersion != nil {
			checks["migrations"] = h.checkMigrations(ctx)
		}

		overall, code := rollup(checks)
		writeJSON(w, code, HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func rollup(checks map[string]CheckResult) (string, int) {
	overall := "healthy"
	for _, c := range checks {
		switch c.Status {
		case checkFail:
			return "unhealthy", http.StatusServiceUnavailable
		case checkWarn:
			overall = "degraded"
		}
	}
	return overall, http.StatusOK
}

// Readyz answers 503 only when a PostgreSQL backend stops answering. A server
// that fell back to the memory store keeps serving and is reported ready.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if h.checkStorage(ctx).Status == checkFail {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
	})
}

// checkStorage reports the store connection and mirrors it to the
// storage_status gauge.
func (h *HealthChecker) checkStorage(ctx context.Context) CheckResult {
	if h.store == nil {
		return CheckResult{Status: checkFail, Message: "Store not initialized"}
	}

	began := time.Now()
	report := h.store.Status(ctx)
	result := CheckResult{
		Status:    checkPass,
		Message:   "Connected to PostgreSQL",
		LatencyMs: time.Since(began).Milliseconds(),
		Details:   map[string]any{"backend": report.Backend, "connection": string(report.Status)},
	}
	metrics.SetStorageStatus(report.Backend, string(report.Status))
	if report.Detail != "" {
		result.Details["detail"] = report.Detail
	}

	switch {
	case report.Backend == storage.BackendPostgres && report.Status != storage.StatusConnected:
		result.Status, result.Message = checkFail, "Database stopped answering"
	case report.Status == storage.StatusDemo:
		result.Status, result.Message = checkWarn, "Running on the in-memory demo store"
	case report.Status == storage.StatusMissingTables:
		result.Status, result.Message = checkWarn, "Database schema missing, serving from memory"
		result.Details["remediation"] = "Run `confdir migrate up`"
	case report.Status == storage.StatusError:
		result.Status, result.Message = checkWarn, "Database unreachable at startup, serving from memory"
		result.Details["remediation"] = "Check DATABASE_URL and that PostgreSQL is running"
	}
	return result
}

// checkMigrations fails on an unreadable or dirty schema_migrations table.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	began := time.Now()
	version, dirty, err := h.schemaVersion(ctx)
	result := CheckResult{LatencyMs: time.Since(began).Milliseconds()}
	switch {
	case err != nil:
		result.Status, result.Message = checkFail, "Failed to query migration version"
		result.Details = map[string]any{"error": err.Error(), "remediation": "Run `confdir migrate up`"}
	case dirty:
		result.Status, result.Message = checkFail, "Migration state is dirty"
		result.Details = map[string]any{"version": version, "remediation": "Fix the failed migration, then run `confdir migrate down` or clear the dirty flag"}
	default:
		result.Status, result.Message = checkPass, "Migrations applied"
		result.Details = map[string]any{"version": version}
	}
	return result
}

// Healthz is the liveness probe.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
}

type healthResponse struct {
	Status string `json:"status"`
}
