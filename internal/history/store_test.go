package history

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRecordAndDownloaded(t *testing.T) {
	s := testStore(t)
	start := time.Date(2024, 4, 12, 1, 5, 30, 0, time.UTC)

	ok, err := s.Downloaded("10.0.0.5", 1, start)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("empty ledger reported a download")
	}

	err = s.Record(Entry{
		Device:      "10.0.0.5",
		Channel:     1,
		Start:       start,
		End:         start.Add(5 * time.Minute),
		PlaybackURI: "rtsp://device/Streaming/tracks/101",
		LocalPath:   "video/10.0.0.5/camera1/2024-04-12_01.05.30.mp4",
		Outcome:     OutcomeOK,
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err = s.Downloaded("10.0.0.5", 1, start)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("recorded download not found")
	}

	// Same start on another channel or device is a different segment.
	if ok, _ := s.Downloaded("10.0.0.5", 2, start); ok {
		t.Error("channel 2 reported as downloaded")
	}
	if ok, _ := s.Downloaded("10.0.0.6", 1, start); ok {
		t.Error("other device reported as downloaded")
	}
}

func TestFailedAttemptDoesNotCountAsDownloaded(t *testing.T) {
	s := testStore(t)
	start := time.Date(2024, 4, 12, 2, 0, 0, 0, time.UTC)

	err := s.Record(Entry{
		Device:  "10.0.0.5",
		Channel: 1,
		Start:   start,
		Outcome: OutcomeFailed,
		Reason:  "unexpected EOF",
	})
	if err != nil {
		t.Fatal(err)
	}

	if ok, _ := s.Downloaded("10.0.0.5", 1, start); ok {
		t.Error("failed attempt reported as downloaded")
	}

	failures, err := s.Failures("10.0.0.5", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Reason != "unexpected EOF" {
		t.Errorf("failures = %+v", failures)
	}
	if !failures[0].Start.Equal(start) {
		t.Errorf("failure start = %v, want %v", failures[0].Start, start)
	}
}
