package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/domain/users"
	"github.com/Togather-Foundation/confdir/internal/seed"
	"github.com/Togather-Foundation/confdir/internal/storage"
	"github.com/rs/zerolog"
)

// directory bundles an opened store with the services built over it.
type directory struct {
	store       *storage.Store
	conferences *conferences.Service
	events      *events.Service
	users       *users.Service
}

func openDirectory(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*directory, error) {
	store, err := storage.Open(ctx, storage.Options{
		DatabaseURL:    cfg.Database.URL,
		MaxConnections: int32(cfg.Database.MaxConnections),
		SnapshotPath:   cfg.Storage.SnapshotPath,
		ConnectTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	conferenceService := conferences.NewService(store.Conferences(), logger)
	builder := calendar.NewBuilder(cfg.Calendar.Location, logger)
	demo := users.DemoCredential{Email: cfg.Auth.DemoAdmin.Email, Password: cfg.Auth.DemoAdmin.Password}

	return &directory{
		store:       store,
		conferences: conferenceService,
		events:      events.NewService(store.Events(), conferenceService, builder, logger),
		users:       users.NewService(store.Users(), demo, logger),
	}, nil
}

func (d *directory) Close() {
	d.store.Close()
}

// loadDataset reads the seed file when one is given and the built-in demo
// dataset otherwise.
func loadDataset(path string) (*seed.Dataset, error) {
	if path == "" {
		return seed.Demo()
	}
	return seed.Load(path)
}
