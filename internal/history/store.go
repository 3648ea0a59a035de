package history

import (
	"database/sql"
	"time"
)

// Outcome values recorded per attempt.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Entry is one download attempt.
type Entry struct {
	Device      string
	Channel     int
	Start       time.Time
	End         time.Time
	PlaybackURI string
	LocalPath   string
	Outcome     string
	Reason      string
}

// Store persists entries.
type Store struct {
	db *sql.DB
}

// NewStore wraps db and creates the schema if it does not exist.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT NOT NULL,
		channel INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		playback_uri TEXT,
		local_path TEXT,
		outcome TEXT NOT NULL,
		reason TEXT,
		created_time DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_segments_lookup ON segments(device, channel, start_time);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record appends one attempt.
func (s *Store) Record(e Entry) error {
	query := `INSERT INTO segments (device, channel, start_time, end_time, playback_uri, local_path, outcome, reason, created_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		e.Device, e.Channel,
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339),
		e.PlaybackURI, e.LocalPath, e.Outcome, e.Reason,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// Downloaded reports whether a segment starting at start on that device and
// channel has already been fetched successfully.
func (s *Store) Downloaded(device string, channel int, start time.Time) (bool, error) {
	query := `SELECT 1 FROM segments WHERE device = ? AND channel = ? AND start_time = ? AND outcome = ? LIMIT 1`
	var one int
	err := s.db.QueryRow(query, device, channel, start.UTC().Format(time.RFC3339), OutcomeOK).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Failures returns the failed attempts for a device, newest first. Used by
// the summary to point at segments worth re-running.
func (s *Store) Failures(device string, channel int) ([]Entry, error) {
	query := `SELECT device, channel, start_time, end_time, playback_uri, local_path, outcome, reason
		FROM segments WHERE device = ? AND channel = ? AND outcome = ? ORDER BY created_time DESC`
	rows, err := s.db.Query(query, device, channel, OutcomeFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startText, endText string
		if err := rows.Scan(&e.Device, &e.Channel, &startText, &endText, &e.PlaybackURI, &e.LocalPath, &e.Outcome, &e.Reason); err != nil {
			return nil, err
		}
		e.Start, _ = time.Parse(time.RFC3339, startText)
		e.End, _ = time.Parse(time.RFC3339, endText)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
