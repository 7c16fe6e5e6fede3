// Package journal persists tmux control mode event streams to sqlite so a
// session can be replayed later, for debugging an integration or building
// test fixtures from live traffic. It is a consumer of the tmuxcc Event
// stream, not part of the parser core.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/g960059/tmuxcc"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownKind = errors.New("unknown event kind")
)

type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path and applies pending
// schema migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("chmod journal path: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Recording appends events under one uuid-stamped recording id. It is not
// safe for concurrent use; serialise access externally like the feeder.
type Recording struct {
	journal *Journal
	ID      string
	seq     int64
}

func (j *Journal) BeginRecording(ctx context.Context, label string) (*Recording, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
INSERT INTO recordings(recording_id, label, started_at)
VALUES (?, ?, ?)
`, id, label, ts(time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	return &Recording{journal: j, ID: id}, nil
}

func (r *Recording) Append(ctx context.Context, ev tmuxcc.Event) error {
	kind, payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	r.seq++
	_, err = r.journal.db.ExecContext(ctx, `
INSERT INTO events(recording_id, seq, kind, payload)
VALUES (?, ?, ?, ?)
`, r.ID, r.seq, kind, payload)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Replay returns the recorded events in sequence order, reconstructed as
// the concrete types the feeder originally emitted.
func (j *Journal) Replay(ctx context.Context, recordingID string) ([]tmuxcc.Event, error) {
	var exists int
	err := j.db.QueryRowContext(ctx, `SELECT 1 FROM recordings WHERE recording_id = ?`, recordingID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup recording: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT kind, payload FROM events
WHERE recording_id = ?
ORDER BY seq ASC
`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []tmuxcc.Event
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := decodeEvent(kind, payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type RecordingInfo struct {
	ID        string
	Label     string
	StartedAt time.Time
	Events    int
}

func (j *Journal) Recordings(ctx context.Context) ([]RecordingInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT r.recording_id, r.label, r.started_at, COUNT(e.seq)
FROM recordings r
LEFT JOIN events e ON e.recording_id = r.recording_id
GROUP BY r.recording_id
ORDER BY r.started_at ASC, r.recording_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var infos []RecordingInfo
	for rows.Next() {
		var info RecordingInfo
		var startedAt string
		if err := rows.Scan(&info.ID, &info.Label, &startedAt, &info.Events); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		info.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return infos, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
