package conferences

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestGroupByMonth(t *testing.T) {
	items := []Conference{
		{ID: "jan", StartDate: "2026-01-20"},
		{ID: "dec-b", StartDate: "2025-12-10"},
		{ID: "broken", StartDate: "soon"},
		{ID: "dec-a", StartDate: "2025-12-04"},
	}

	groups := GroupByMonth(items)

	require.Len(t, groups, 2)
	require.Equal(t, MonthOption{Label: "Dec 2025", Year: 2025, MonthIndex: 11}, groups[0].MonthOption)
	require.Equal(t, "dec-b", groups[0].Conferences[0].ID)
	require.Equal(t, "dec-a", groups[0].Conferences[1].ID)
	require.Equal(t, MonthOption{Label: "Jan 2026", Year: 2026, MonthIndex: 0}, groups[1].MonthOption)
}

func TestGroupByMonthEmpty(t *testing.T) {
	require.Empty(t, GroupByMonth(nil))
}

func TestMonthsOnlyCountsPublished(t *testing.T) {
	repo := newStubRepo(
		Conference{ID: "a", StartDate: "2025-12-04", Status: StatusPublished},
		Conference{ID: "b", StartDate: "2026-02-01", Status: StatusDraft},
		Conference{ID: "c", StartDate: "2026-03-01", Status: StatusPublished},
	)
	svc := NewService(repo, zerolog.Nop())

	months, err := svc.Months(context.Background())

	require.NoError(t, err)
	require.Equal(t, []MonthOption{
		{Label: "Dec 2025", Year: 2025, MonthIndex: 11},
		{Label: "Mar 2026", Year: 2026, MonthIndex: 2},
	}, months)
}
