package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"courserag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	user_msg      TEXT NOT NULL,
	assistant_msg TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS turns_session_idx ON turns (session_id, id);
`

// SQLiteStore keeps session history in a SQLite file so conversations
// survive process restarts. Only the last maxTurns turns of a session are
// read back; older rows stay on disk but fall out of the window.
type SQLiteStore struct {
	db       *sql.DB
	maxTurns int
}

func OpenSQLiteStore(path string, maxTurns int) (*SQLiteStore, error) {
	if maxTurns <= 0 {
		maxTurns = 5
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	return &SQLiteStore{db: db, maxTurns: maxTurns}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create() string { return uuid.NewString() }

func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_msg, assistant_msg FROM (
			SELECT id, user_msg, assistant_msg FROM turns
			WHERE session_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, sessionID, s.maxTurns)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()
	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.User, &t.Assistant); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, user_msg, assistant_msg) VALUES (?, ?, ?)`,
		sessionID, turn.User, turn.Assistant)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}
