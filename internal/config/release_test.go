package config

import (
	"testing"
	"time"
)

func TestCurrentReleaseID(t *testing.T) {
	cases := []struct {
		when time.Time
		want string
	}{
		{time.Date(2025, 7, 24, 12, 0, 0, 0, time.UTC), "week2025.30"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "week2025.01"},
		// Dec 29 2025 is a Monday belonging to ISO week 1 of 2026
		{time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), "week2026.01"},
		// Jan 1 2027 falls in ISO week 53 of 2026
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "week2026.53"},
	}
	for _, c := range cases {
		if got := CurrentReleaseID(c.when); got != c.want {
			t.Errorf("CurrentReleaseID(%s) = %q, want %q", c.when.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestReleaseDatesRoundTrip(t *testing.T) {
	// for any moment, the derived release id must contain that moment
	moments := []time.Time{
		time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC),  // a Monday
		time.Date(2025, 7, 27, 23, 0, 0, 0, time.UTC), // a Sunday
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, m := range moments {
		id := CurrentReleaseID(m)
		start, end := ReleaseDates(id, m)
		if start.Weekday() != time.Monday {
			t.Errorf("%s: start %s is not a Monday", id, start.Format("2006-01-02"))
		}
		if m.Before(start) || m.After(end.AddDate(0, 0, 1)) {
			t.Errorf("%s: %s outside [%s, %s]", id, m.Format("2006-01-02"),
				start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		if end.Sub(start) != 6*24*time.Hour {
			t.Errorf("%s: window is %v, want 6 days", id, end.Sub(start))
		}
	}
}

func TestReleaseDatesKnownWeek(t *testing.T) {
	start, end := ReleaseDates("week2025.30", time.Now())
	if got := start.Format("2006-01-02"); got != "2025-07-21" {
		t.Errorf("start = %s, want 2025-07-21", got)
	}
	if got := end.Format("2006-01-02"); got != "2025-07-27" {
		t.Errorf("end = %s, want 2025-07-27", got)
	}
}

func TestReleaseDatesMalformedFallsBack(t *testing.T) {
	now := time.Date(2025, 7, 24, 10, 0, 0, 0, time.UTC) // Thursday
	for _, bad := range []string{"", "sprint2025.30", "week2025", "weekX.30", "week2025.99"} {
		start, end := ReleaseDates(bad, now)
		if start.Weekday() != time.Monday {
			t.Errorf("%q: fallback start %s not a Monday", bad, start.Format("2006-01-02"))
		}
		if got := start.Format("2006-01-02"); got != "2025-07-21" {
			t.Errorf("%q: fallback start = %s, want current week", bad, got)
		}
		if got := end.Format("2006-01-02"); got != "2025-07-27" {
			t.Errorf("%q: fallback end = %s", bad, got)
		}
	}
}
