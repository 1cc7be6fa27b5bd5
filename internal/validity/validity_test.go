package validity

import (
	"testing"
	"time"
)

var ref = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func TestDaysUntil(t *testing.T) {
	cases := []struct {
		end  time.Time
		want int
	}{
		{ref, 0},
		{ref.AddDate(0, 0, 1), 1},
		{ref.AddDate(0, 0, -1), -1},
		{time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), 1},
		// Time of day must not shift the calendar distance.
		{time.Date(2024, 6, 16, 23, 59, 59, 0, time.UTC), 1},
	}
	for _, tc := range cases {
		if got := DaysUntil(tc.end, ref); got != tc.want {
			t.Errorf("DaysUntil(%s) = %d, want %d", tc.end.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestStatusTiers(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{-10, StatusExpired},
		{0, StatusExpired},
		{1, StatusCritical},
		{30, StatusCritical},
		{31, StatusWarning},
		{60, StatusWarning},
		{61, StatusCaution},
		{120, StatusCaution},
		{121, StatusCurrent},
		{365, StatusCurrent},
	}
	for _, tc := range cases {
		end := ref.AddDate(0, 0, tc.days)
		if got := Status(end, ref); got != tc.want {
			t.Errorf("Status(+%dd) = %s, want %s", tc.days, got, tc.want)
		}
	}
}
