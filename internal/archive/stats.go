package archive

import (
	"context"
	"os"
)

// Stats holds archive-wide counters.
type Stats struct {
	DBPath        string         `json:"db_path"`
	DBSizeBytes   int64          `json:"db_size_bytes"`
	TotalThoughts int            `json:"total_thoughts"`
	Failed        int            `json:"failed"`
	Rejected      int            `json:"rejected"`
	Sessions      []SessionStats `json:"sessions"`
}

// SessionStats holds per-session counts.
type SessionStats struct {
	SessionID string `json:"session_id"`
	Thoughts  int    `json:"thoughts"`
	Branches  int    `json:"branches"`
	First     string `json:"first"`
	Last      string `json:"last"`
}

// Stats returns archive statistics, most recent session first.
func (s *Store) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&st.TotalThoughts)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts WHERE status = 'failed'`).Scan(&st.Failed)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts WHERE status = 'validation_error'`).Scan(&st.Rejected)

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*) as cnt, COUNT(DISTINCT branch_id) as branches,
		       MIN(created_at), MAX(created_at)
		FROM transcripts
		GROUP BY session_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var sess SessionStats
		rows.Scan(&sess.SessionID, &sess.Thoughts, &sess.Branches, &sess.First, &sess.Last)
		st.Sessions = append(st.Sessions, sess)
	}
	return st, rows.Err()
}
