package conferences

import (
	"context"
	"sort"
	"time"
)

// MonthOption is one entry of the month navigation.
type MonthOption struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	// MonthIndex is zero-based (0 = January).
	MonthIndex int `json:"monthIndex"`
}

// MonthGroup is a month bucket of the public listing.
type MonthGroup struct {
	MonthOption
	Conferences []Conference
}

func monthOf(c Conference) (MonthOption, bool) {
	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return MonthOption{}, false
	}
	return MonthOption{
		Label:      start.Format("Jan 2006"),
		Year:       start.Year(),
		MonthIndex: int(start.Month()) - 1,
	}, true
}

func (m MonthOption) before(other MonthOption) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.MonthIndex < other.MonthIndex
}

// GroupByMonth buckets conferences by the month they start in. Buckets are in
// calendar order; conferences keep their relative order inside a bucket.
// Conferences without a parseable start date are left out.
func GroupByMonth(items []Conference) []MonthGroup {
	index := make(map[MonthOption]int)
	groups := make([]MonthGroup, 0)
	for _, c := range items {
		month, ok := monthOf(c)
		if !ok {
			continue
		}
		i, seen := index[month]
		if !seen {
			i = len(groups)
			index[month] = i
			groups = append(groups, MonthGroup{MonthOption: month})
		}
		groups[i].Conferences = append(groups[i].Conferences, c)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].before(groups[j].MonthOption)
	})
	return groups
}

// Months lists the months that have at least one published conference.
func (s *Service) Months(ctx context.Context) ([]MonthOption, error) {
	items, err := s.List(ctx, Filters{Status: StatusPublished})
	if err != nil {
		return nil, err
	}
	groups := GroupByMonth(items)
	out := make([]MonthOption, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.MonthOption)
	}
	return out, nil
}
