package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps sessions in a SQLite file so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, userID int64) (Session, error) {
	var (
		state       string
		profileJSON []byte
		lastNanos   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state, profile, last_activity FROM sessions WHERE user_id = ?`, userID,
	).Scan(&state, &profileJSON, &lastNanos)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session %d: %w", userID, err)
	}

	out := Session{
		UserID:       userID,
		State:        State(state),
		LastActivity: time.Unix(0, lastNanos),
	}
	if !out.State.Valid() {
		return Session{}, fmt.Errorf("session %d: unknown state %q", userID, state)
	}
	if err := json.Unmarshal(profileJSON, &out.Profile); err != nil {
		return Session{}, fmt.Errorf("decode profile %d: %w", userID, err)
	}
	return out, nil
}

func (s *SQLiteStore) Set(ctx context.Context, sess Session) error {
	profileJSON, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("encode profile %d: %w", sess.UserID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (user_id, state, profile, last_activity) VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  state = excluded.state,
  profile = excluded.profile,
  last_activity = excluded.last_activity`,
		sess.UserID, string(sess.State), profileJSON, sess.LastActivity.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert session %d: %w", sess.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return int(n), nil
}
