package schedule

import (
	"testing"
	"time"

	"github.com/GameoCoder/attendance-backend/internal/model"
)

func TestDayName(t *testing.T) {
	// 2024-01-01 was a Monday.
	monday := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := DayName(monday); got != "Monday" {
		t.Fatalf("expected Monday, got %s", got)
	}
	if got := DayName(monday.AddDate(0, 0, 6)); got != "Sunday" {
		t.Fatalf("expected Sunday, got %s", got)
	}
}

func TestWindowContains(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
	}

	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},
		{9, 30, true},
		{10, 0, true},
		{10, 1, false},
	}
	for _, tc := range cases {
		if got := WindowContains("09:00", "10:00", at(tc.hour, tc.min)); got != tc.want {
			t.Fatalf("at %02d:%02d expected %v, got %v", tc.hour, tc.min, tc.want, got)
		}
	}

	if WindowContains("bogus", "10:00", at(9, 30)) {
		t.Fatalf("expected malformed start to never match")
	}
}

func TestFirstActive(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	entries := []model.ScheduleEntry{
		{ID: 7, Start: "09:00", End: "10:00"},
		{ID: 3, Start: "09:15", End: "10:15"},
		{ID: 5, Start: "11:00", End: "12:00"},
	}

	active := FirstActive(entries, now)
	if active == nil {
		t.Fatalf("expected an active entry")
	}
	// Overlapping windows resolve to the lowest schedule id.
	if active.ID != 3 {
		t.Fatalf("expected schedule 3, got %d", active.ID)
	}

	if FirstActive(entries, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)) != nil {
		t.Fatalf("expected no active entry outside all windows")
	}

	if FirstActive(nil, now) != nil {
		t.Fatalf("expected nil for empty schedule list")
	}
}
