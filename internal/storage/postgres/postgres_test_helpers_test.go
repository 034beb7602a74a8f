package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// directoryTables lists every table a test may write, children first.
var directoryTables = []string{"events", "conferences", "users"}

// testDB is one postgres container shared by every test in the package.
var testDB struct {
	once sync.Once
	err  error
	pool *pgxpool.Pool
	url  string
}

func TestMain(m *testing.M) {
	code := m.Run()
	if testDB.pool != nil {
		testDB.pool.Close()
	}
	os.Exit(code)
}

// setupPostgres returns the shared pool over an empty, fully migrated schema.
func setupPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	testDB.once.Do(func() {
		testDB.pool, testDB.url, testDB.err = startPostgres()
	})
	require.NoError(t, testDB.err)

	truncate(t, testDB.pool)
	return testDB.pool, testDB.url
}

func startPostgres() (*pgxpool.Pool, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("confdir"),
		tcpostgres.WithUsername("confdir"),
		tcpostgres.WithPassword("confdir_dev"),
		tcpostgres.BasicWaitStrategies(),
		testcontainers.WithReuseByName("confdir-storage-db"),
	)
	if err != nil {
		return nil, "", err
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	// The server may accept connections a moment before migrations can run.
	migrations := filepath.Join(moduleRoot(), DefaultMigrationsPath)
	deadline := time.Now().Add(10 * time.Second)
	for {
		err = MigrateUp(url, migrations)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, "", err
	}

	pool, err := Connect(ctx, url, 4)
	return pool, url, err
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, table := range directoryTables {
		_, err := pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err, "clear %s", table)
	}
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	pool, _ := setupPostgres(t)
	repo, err := NewRepository(pool)
	require.NoError(t, err)
	return repo
}

func moduleRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..")
}
