package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CurrentReleaseID derives the release identifier for the given time,
// formatted week<year>.<week> with a zero-padded ISO week number.
func CurrentReleaseID(now time.Time) string {
	year, week := now.ISOWeek()
	return fmt.Sprintf("week%d.%02d", year, week)
}

// ReleaseDates returns the Monday..Sunday window for a release id such as
// week2025.30. A malformed id falls back to the week containing now.
func ReleaseDates(releaseID string, now time.Time) (start, end time.Time) {
	if s, e, err := parseReleaseDates(releaseID); err == nil {
		return s, e
	}
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 6)
}

func parseReleaseDates(releaseID string) (time.Time, time.Time, error) {
	rest, ok := strings.CutPrefix(releaseID, "week")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("release id %q: missing week prefix", releaseID)
	}
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("release id %q: want week<year>.<week>", releaseID)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("release id %q: bad year: %w", releaseID, err)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return time.Time{}, time.Time{}, fmt.Errorf("release id %q: bad week", releaseID)
	}

	// Monday of ISO week 1 is the Monday of the week containing Jan 4.
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	firstMonday := jan4.AddDate(0, 0, -(wd - 1))
	start := firstMonday.AddDate(0, 0, (week-1)*7)
	return start, start.AddDate(0, 0, 6), nil
}
