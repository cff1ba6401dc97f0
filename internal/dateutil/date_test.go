package dateutil

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2025-03-10", true},
		{"2025-12-31", true},
		{"2025-3-10", false},
		{"10-03-2025", false},
		{"2025-03-10T00:00:00Z", false},
		{"2025-02-30", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValid(tt.in); got != tt.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tt.in, got, tt.valid)
		}
	}
}

func TestWeekday(t *testing.T) {
	// 2025-03-10 is a Monday.
	if wd := Weekday("2025-03-10"); wd != time.Monday {
		t.Errorf("Weekday(2025-03-10) = %v, want Monday", wd)
	}
	if wd := Weekday("2025-03-08"); wd != time.Saturday {
		t.Errorf("Weekday(2025-03-08) = %v, want Saturday", wd)
	}
}

func TestAddDays(t *testing.T) {
	if got := AddDays("2025-03-10", 2); got != "2025-03-12" {
		t.Errorf("AddDays(+2) = %q, want 2025-03-12", got)
	}
	if got := AddDays("2025-03-01", -1); got != "2025-02-28" {
		t.Errorf("AddDays(-1) across month = %q, want 2025-02-28", got)
	}
}

func TestCancellable(t *testing.T) {
	// 2025-03-10 is a Monday; 2025-03-08/09 the preceding weekend.
	tests := []struct {
		name      string
		date      string
		createdOn string
		today     string
		want      bool
	}{
		{"future date", "2025-03-12", "2025-03-10", "2025-03-10", true},
		{"same day", "2025-03-10", "2025-03-10", "2025-03-10", true},
		{"yesterday", "2025-03-09", "2025-03-01", "2025-03-10", false},
		{"weekend-booked monday, tuesday", "2025-03-10", "2025-03-08", "2025-03-11", true},
		{"weekend-booked monday, wednesday", "2025-03-10", "2025-03-09", "2025-03-12", true},
		{"weekend-booked monday, thursday", "2025-03-10", "2025-03-09", "2025-03-13", false},
		{"monday booked on friday", "2025-03-10", "2025-03-07", "2025-03-11", false},
		{"monday booked weeks earlier on a saturday", "2025-03-10", "2025-03-01", "2025-03-11", false},
		{"tuesday booked on monday", "2025-03-11", "2025-03-10", "2025-03-12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cancellable(tt.date, tt.createdOn, tt.today); got != tt.want {
				t.Errorf("Cancellable(%q, %q, %q) = %v, want %v",
					tt.date, tt.createdOn, tt.today, got, tt.want)
			}
		})
	}
}
