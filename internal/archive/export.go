package archive

import (
	"context"
	"strings"
	"time"
)

// Entry is one exported transcript row.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	BranchID  string    `json:"branch_id"`
	Index     int       `json:"index"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	Response  string    `json:"response,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Export returns archived transcripts in chronological order, optionally
// filtered by session.
func (s *Store) Export(ctx context.Context, sessionID string) ([]Entry, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if sessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, sessionID)
	}

	query := `SELECT id, session_id, branch_id, idx, kind, text, response, status, error, created_at
	          FROM transcripts WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at, idx`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var response, errMsg *string
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.BranchID, &e.Index, &e.Kind,
			&e.Text, &response, &e.Status, &errMsg, &created); err != nil {
			return nil, err
		}
		if response != nil {
			e.Response = *response
		}
		if errMsg != nil {
			e.Error = *errMsg
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
