// Package archive persists a transcript of processed thoughts to SQLite.
// It is an audit trail, not a source of truth: live session state lives in
// memory only, and nothing is ever read back into a session.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"seqthink/internal/engine"
)

// Store appends transcripts to a local SQLite database. Record is safe for
// concurrent use: transcripts arrive from tool-call goroutines outside the
// session lock.
type Store struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy; *rand.Rand is not concurrency-safe
	entropy *rand.Rand
}

// New opens or creates the archive database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return s, nil
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		branch_id  TEXT NOT NULL,
		idx        INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		text       TEXT NOT NULL,
		response   TEXT,
		status     TEXT NOT NULL,
		error      TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transcripts_status ON transcripts(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record implements engine.Recorder.
func (s *Store) Record(ctx context.Context, tr engine.Transcript) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (id, session_id, branch_id, idx, kind, text, response, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), tr.SessionID, tr.BranchID, tr.Index, tr.Kind, tr.Text,
		nullable(tr.Response), tr.Status, nullable(tr.Error),
		tr.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Close closes the archive database.
func (s *Store) Close() error { return s.db.Close() }
