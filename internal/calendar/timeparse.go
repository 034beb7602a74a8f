package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableEventTime covers a missing or malformed date, start time or end time.
var ErrUnparseableEventTime = errors.New("unparseable event time")

// DateLayout is the ISO calendar date form used for event and conference dates.
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})([ap]m)?`)

// clockNoise matches whitespace including the no-break and narrow no-break
// spaces that locale-formatted times tend to carry before the meridian marker.
var clockNoise = regexp.MustCompile(`[\s\x{00A0}\x{202F}]+`)

// Clock is a parsed time of day in 24-hour form.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses free-text times such as "8:50 AM", "08:50pm" or "20:00".
// A value without a meridian marker is taken as 24-hour and left unadjusted.
func ParseClock(value string) (Clock, error) {
	clean := clockNoise.ReplaceAllString(strings.ToLower(value), "")
	match := clockPattern.FindStringSubmatch(clean)
	if match == nil {
		return Clock{}, fmt.Errorf("%w: time %q", ErrUnparseableEventTime, value)
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])

	switch match[3] {
	case "pm":
		if hours < 12 {
			hours += 12
		}
	case "am":
		if hours == 12 {
			hours = 0
		}
	}

	return Clock{Hour: hours, Minute: minutes}, nil
}

// ParseDate splits a YYYY-MM-DD date into its numeric parts.
func ParseDate(value string) (year int, month time.Month, day int, err error) {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: date %q", ErrUnparseableEventTime, value)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, convErr := strconv.Atoi(strings.TrimSpace(part))
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: date %q", ErrUnparseableEventTime, value)
		}
		nums[i] = n
	}
	return nums[0], time.Month(nums[1]), nums[2], nil
}

// ParseEventTime combines a date and a free-text time into a wall-clock
// instant in loc. Out-of-range components normalize the way time.Date does.
func ParseEventTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	year, month, day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, loc), nil
}
