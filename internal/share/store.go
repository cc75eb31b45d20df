// Package share persists shared playground sessions for the execution
// backend.
package share

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/pyexpl/internal/db"
	"github.com/Iron-Ham/pyexpl/internal/errors"
	"github.com/Iron-Ham/pyexpl/internal/runner"
)

// Session is a stored snapshot of editor text and runner selection.
type Session struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Runners   runner.Set `json:"runners"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store keeps sessions in the shares table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and migrates) the share database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := db.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an already opened, migrated database.
func New(conn *sql.DB) *Store {
	return &Store{db: conn, now: time.Now}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new session and returns it with its generated ID.
func (s *Store) Create(ctx context.Context, code string, runners runner.Set) (Session, error) {
	if runners == nil {
		runners = runner.Set{}
	}
	encoded, err := json.Marshal(runners.Strings())
	if err != nil {
		return Session{}, fmt.Errorf("encode runners: %w", err)
	}
	sess := Session{
		ID:        uuid.NewString(),
		Code:      code,
		Runners:   runners.Clone(),
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shares(id, code, runners, created_at) VALUES(?, ?, ?, ?)`,
		sess.ID, sess.Code, string(encoded), sess.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Session{}, fmt.Errorf("insert share: %w", err)
	}
	return sess, nil
}

// Get returns the session with id, or a NotFoundError wrapping
// errors.ErrShareNotFound.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	var (
		sess      Session
		runners   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, runners, created_at FROM shares WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Code, &runners, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, errors.NewNotFoundError("share", id).WithCause(errors.ErrShareNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("select share %s: %w", id, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(runners), &ids); err != nil {
		return Session{}, errors.NewStorageError("decode share runners", errors.Join(errors.ErrStorageCorrupted, err)).WithKey(id)
	}
	sess.Runners = make(runner.Set, len(ids))
	for i, r := range ids {
		sess.Runners[i] = runner.ID(r)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Session{}, errors.NewStorageError("decode share timestamp", errors.Join(errors.ErrStorageCorrupted, err)).WithKey(id)
	}
	return sess, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shares`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count shares: %w", err)
	}
	return n, nil
}
