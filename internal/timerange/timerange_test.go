package timerange

import (
	"errors"
	"testing"
	"time"
)

// Fixed reference instant: Friday 2024-04-12 10:30:00 in a zone 5 hours
// behind UTC.
var (
	testLoc = time.FixedZone("UTC-5", -5*60*60)
	testNow = time.Date(2024, 4, 12, 10, 30, 0, 0, testLoc)
)

func TestParseAbsolute(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"2024-04-12 00:00:00", time.Date(2024, 4, 12, 0, 0, 0, 0, testLoc)},
		{"2024-04-12 08:15", time.Date(2024, 4, 12, 8, 15, 0, 0, testLoc)},
		{"2024-04-12", time.Date(2024, 4, 12, 0, 0, 0, 0, testLoc)},
		{"04/12/2024 08:00:00", time.Date(2024, 4, 12, 8, 0, 0, 0, testLoc)},
		{"April 12, 2024 8:00am", time.Date(2024, 4, 12, 8, 0, 0, 0, testLoc)},
	}

	for _, tt := range tests {
		got, err := Parse(tt.text, testNow, testLoc)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.text, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseNatural(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"now", testNow},
		{"today", testNow},
		{"yesterday", testNow.AddDate(0, 0, -1)},
		{"tomorrow", testNow.AddDate(0, 0, 1)},
		{"yesterday 8:00 AM", time.Date(2024, 4, 11, 8, 0, 0, 0, testLoc)},
		{"8:00 AM yesterday", time.Date(2024, 4, 11, 8, 0, 0, 0, testLoc)},
		{"today 23:59:59", time.Date(2024, 4, 12, 23, 59, 59, 0, testLoc)},
		{"2 days ago", testNow.AddDate(0, 0, -2)},
		{"1 week from now", testNow.AddDate(0, 0, 7)},
		{"2 days ago 6:00 AM", time.Date(2024, 4, 10, 6, 0, 0, 0, testLoc)},
		{"3 months ago", testNow.AddDate(0, 0, -90)},
		{"this week", time.Date(2024, 4, 8, 0, 0, 0, 0, testLoc)},
		{"last week", time.Date(2024, 4, 1, 0, 0, 0, 0, testLoc)},
		{"next week", time.Date(2024, 4, 15, 0, 0, 0, 0, testLoc)},
		{"last month", time.Date(2024, 3, 1, 0, 0, 0, 0, testLoc)},
		{"this year", time.Date(2024, 1, 1, 0, 0, 0, 0, testLoc)},
		{"last month 2:30 PM", time.Date(2024, 3, 1, 14, 30, 0, 0, testLoc)},
	}

	for _, tt := range tests {
		got, err := Parse(tt.text, testNow, testLoc)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.text, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	first, err := Parse("2024-04-12 04:00:00", testNow, testLoc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse("2024-04-12 04:00:00", testNow, testLoc)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Errorf("repeated parse differs: %v vs %v", first, second)
	}
}

func TestParseError(t *testing.T) {
	for _, text := range []string{"", "not a date", "sometime soonish"} {
		if _, err := Parse(text, testNow, testLoc); !errors.Is(err, ErrParse) {
			t.Errorf("Parse(%q) error = %v, want ErrParse", text, err)
		}
	}
}

func TestResolveConvertsToUTC(t *testing.T) {
	r, err := Resolve("2024-04-12 00:00:00", "2024-04-12 04:00:00", testNow, testLoc)
	if err != nil {
		t.Fatal(err)
	}

	wantStart := time.Date(2024, 4, 12, 5, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 4, 12, 9, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) || !r.End.Equal(wantEnd) {
		t.Errorf("Resolve = %v, want [%v, %v)", r, wantStart, wantEnd)
	}
	if r.Start.Location() != time.UTC {
		t.Errorf("range start not in UTC: %v", r.Start.Location())
	}
}

func TestResolveDefaultsEndToNow(t *testing.T) {
	r, err := Resolve("yesterday", "", testNow, testLoc)
	if err != nil {
		t.Fatal(err)
	}
	if !r.End.Equal(testNow.UTC()) {
		t.Errorf("end = %v, want now (%v)", r.End, testNow.UTC())
	}
	if r.Duration() != 24*time.Hour {
		t.Errorf("duration = %v, want 24h", r.Duration())
	}
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	_, err := Resolve("2024-04-12 04:00:00", "2024-04-12 00:00:00", testNow, testLoc)
	if !errors.Is(err, ErrRange) {
		t.Errorf("error = %v, want ErrRange", err)
	}

	_, err = Resolve("2024-04-12 04:00:00", "2024-04-12 04:00:00", testNow, testLoc)
	if !errors.Is(err, ErrRange) {
		t.Errorf("equal endpoints: error = %v, want ErrRange", err)
	}
}
