package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{in: "8:50 AM", want: Clock{8, 50}},
		{in: "08:50pm", want: Clock{20, 50}},
		{in: "12:00 AM", want: Clock{0, 0}},
		{in: "12:30 pm", want: Clock{12, 30}},
		{in: "12:00", want: Clock{12, 0}},
		{in: "20:00", want: Clock{20, 0}},
		{in: "9:05", want: Clock{9, 5}},
		{in: "11:59 PM", want: Clock{23, 59}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseClockRejects(t *testing.T) {
	for _, in := range []string{"", "noon", "8.50 am", "850"} {
		_, err := ParseClock(in)
		require.ErrorIs(t, err, ErrUnparseableEventTime, in)
	}
}

func TestParseDate(t *testing.T) {
	y, m, d, err := ParseDate("2026-01-15")
	require.NoError(t, err)
	require.Equal(t, 2026, y)
	require.Equal(t, time.January, m)
	require.Equal(t, 15, d)

	// Wrong order still splits into three numbers.
	_, _, _, err = ParseDate("15-01-2026")
	require.NoError(t, err)

	_, _, _, err = ParseDate("2026/01/15")
	require.ErrorIs(t, err, ErrUnparseableEventTime)
}

func TestParseEventTimeLocation(t *testing.T) {
	got, err := ParseEventTime("2026-03-08", "6:45 pm", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 8, 18, 45, 0, 0, time.UTC), got)
}

func TestClockString(t *testing.T) {
	require.Equal(t, "07:05", Clock{Hour: 7, Minute: 5}.String())
}
