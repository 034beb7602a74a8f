package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Togather-Foundation/confdir/internal/calendar"
	"github.com/Togather-Foundation/confdir/internal/domain/conferences"
	"github.com/Togather-Foundation/confdir/internal/domain/events"
	"github.com/Togather-Foundation/confdir/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newSeeder(t *testing.T) (*Seeder, *conferences.Service, *events.Service) {
	t.Helper()
	store := memory.New(zerolog.Nop())
	confSvc := conferences.NewService(store.Conferences(), zerolog.Nop())
	eventSvc := events.NewService(store.Events(), confSvc, calendar.NewBuilder(nil, zerolog.Nop()), zerolog.Nop())
	return NewSeeder(confSvc, eventSvc, zerolog.Nop()), confSvc, eventSvc
}

func TestDemoDataset(t *testing.T) {
	ds, err := Demo()

	require.NoError(t, err)
	require.Len(t, ds.Conferences, 9)
	require.Len(t, ds.Events, 7)
	require.Equal(t, "c_awa_25", ds.Conferences[0].ID)
	require.Equal(t, "8:50 AM", ds.Events[0].StartTime)
	require.NotNil(t, ds.Events[0].Capacity)
	require.Equal(t, 100, *ds.Events[0].Capacity)
}

func TestApplyDemo(t *testing.T) {
	ctx := context.Background()
	seeder, confSvc, eventSvc := newSeeder(t)
	ds, err := Demo()
	require.NoError(t, err)

	result, err := seeder.Apply(ctx, ds)

	require.NoError(t, err)
	require.Equal(t, Result{Conferences: 9, Events: 7}, result)

	awa, err := confSvc.Get(ctx, "c_awa_25")
	require.NoError(t, err)
	require.Equal(t, "Bangkok, Thailand", awa.Location)
	require.Equal(t, "Dec 4 - Dec 5", awa.DateRange)
	require.Equal(t, conferences.StatusPublished, awa.Status)

	vegas, err := confSvc.Get(ctx, "c_asw_26")
	require.NoError(t, err)
	require.Equal(t, "Las Vegas, NV", vegas.Location)

	run, err := eventSvc.Get(ctx, "e_awa_1")
	require.NoError(t, err)
	require.Equal(t, "Lumphini Park", run.LocationName)
	require.Equal(t, "c_awa_25", run.ConferenceID)
}

func TestApplyIsRerunnable(t *testing.T) {
	ctx := context.Background()
	seeder, _, _ := newSeeder(t)
	ds, err := Demo()
	require.NoError(t, err)

	_, err = seeder.Apply(ctx, ds)
	require.NoError(t, err)
	result, err := seeder.Apply(ctx, ds)

	require.NoError(t, err)
	require.Equal(t, Result{Skipped: 16}, result)
}

func TestApplyIfEmpty(t *testing.T) {
	ctx := context.Background()
	seeder, _, _ := newSeeder(t)
	ds, err := Demo()
	require.NoError(t, err)

	_, applied, err := seeder.ApplyIfEmpty(ctx, ds)
	require.NoError(t, err)
	require.True(t, applied)

	_, applied, err = seeder.ApplyIfEmpty(ctx, ds)
	require.NoError(t, err)
	require.False(t, applied)
}

func TestApplyRejectsUnknownConference(t *testing.T) {
	seeder, _, _ := newSeeder(t)
	ds := &Dataset{Events: []Event{{
		ID:           "e_orphan",
		ConferenceID: "c_missing",
		Title:        "Orphan",
		Date:         "2025-12-03",
		StartTime:    "9:00 AM",
		VenueName:    "Somewhere",
		Host:         "Nobody",
	}}}

	_, err := seeder.Apply(context.Background(), ds)

	require.Error(t, err)
	require.Contains(t, err.Error(), "e_orphan")
}

func TestApplyWritesNothingWhenAListingIsInvalid(t *testing.T) {
	ctx := context.Background()
	seeder, confSvc, eventSvc := newSeeder(t)
	ds := &Dataset{
		Conferences: []Conference{{ID: "c_growth_26", Name: "Growth Summit", StartDate: "2026-05-12"}},
		Events: []Event{
			{ID: "e_growth_open", ConferenceID: "c_growth_26", Title: "Opening", Date: "2026-05-12", StartTime: "9:00 AM", VenueName: "Main Hall", Host: "Growth Summit Team"},
			{ID: "e_growth_close", ConferenceID: "c_growth_26", Title: "Closing", Date: "2026-05-12", StartTime: "5:00 PM"},
		},
	}

	result, err := seeder.Apply(ctx, ds)

	require.Error(t, err)
	require.Contains(t, err.Error(), "e_growth_close")
	require.Equal(t, Result{}, result)

	exists, err := confSvc.Exists(ctx, "c_growth_26")
	require.NoError(t, err)
	require.False(t, exists)
	_, err = eventSvc.Get(ctx, "e_growth_open")
	require.ErrorIs(t, err, events.ErrNotFound)

	ds.Events[1].VenueName = "Main Hall"
	ds.Events[1].Host = "Growth Summit Team"
	result, err = seeder.Apply(ctx, ds)
	require.NoError(t, err)
	require.Equal(t, Result{Conferences: 1, Events: 2}, result)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
conferences:
  - id: c_one
    name: One
    startDate: "2026-05-01"
`), 0o600))

	ds, err := Load(path)

	require.NoError(t, err)
	require.Len(t, ds.Conferences, 1)
	require.Empty(t, ds.Events)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
