// Package session provides the branch-aware session memory store and the
// submission validator. The store is the single source of truth for one
// reasoning session's thought history.
package session

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"seqthink/internal/model"
)

// ErrNotFound is returned when an operation references a record or branch
// that does not exist. With a validated record this indicates a programming
// error, not a caller error.
var ErrNotFound = errors.New("not found")

// branch is one lineage segment. The root branch "main" has no parent and
// origin 0; every other branch records the index in its parent where it
// diverged.
type branch struct {
	id              string
	parent          string
	origin          int
	records         []*model.ThoughtRecord
	highestEstimate int
}

func (b *branch) lastIndex() int {
	if len(b.records) == 0 {
		return 0
	}
	return b.records[len(b.records)-1].Index
}

// Memory owns all thought records of a single session across branches.
// It is append-only: records are never removed or reordered, and only the
// Response field of an existing record may be set after the fact.
//
// Memory is not safe for concurrent use. The coordinator owning the session
// serializes all access (see engine.Engine).
type Memory struct {
	id       string
	branches map[string]*branch
	order    []string
	history  []*model.ThoughtRecord
	terminal bool
}

// NewMemory creates an empty session memory with a fresh session ID.
func NewMemory() *Memory {
	m := &Memory{}
	m.init()
	return m
}

func (m *Memory) init() {
	m.id = ulid.Make().String()
	m.branches = map[string]*branch{
		model.MainBranch: {id: model.MainBranch},
	}
	m.order = []string{model.MainBranch}
	m.history = nil
	m.terminal = false
}

// ID returns the session identifier.
func (m *Memory) ID() string { return m.id }

// Terminal reports whether a record with continuationExpected=false has been
// processed.
func (m *Memory) Terminal() bool { return m.terminal }

// MarkTerminal marks the session as complete. The memory stays inspectable
// but the coordinator stops accepting appends (policy permitting).
func (m *Memory) MarkTerminal() { m.terminal = true }

// Reset discards all state and starts a new logical session with a new ID.
func (m *Memory) Reset() { m.init() }

// Append adds a validated record to its branch and the flat chronological
// history, creating the branch if the record starts one. It returns the
// record's position in the history (1-based).
//
// Append trusts the validator: a record that violates store invariants is a
// contract violation and returns an error rather than mutating state.
func (m *Memory) Append(rec *model.ThoughtRecord) (int, error) {
	if rec.BranchID == "" {
		return 0, fmt.Errorf("append: record has no branch")
	}

	b, ok := m.branches[rec.BranchID]
	if !ok {
		if rec.BranchOrigin == nil {
			return 0, fmt.Errorf("append: branch %q %w and record has no origin", rec.BranchID, ErrNotFound)
		}
		parent, ok := m.ownerOf(*rec.BranchOrigin)
		if !ok {
			return 0, fmt.Errorf("append: branch origin %d %w", *rec.BranchOrigin, ErrNotFound)
		}
		b = &branch{id: rec.BranchID, parent: parent, origin: *rec.BranchOrigin}
		m.branches[rec.BranchID] = b
		m.order = append(m.order, rec.BranchID)
	}

	if last := b.lastIndex(); rec.Index <= last {
		return 0, fmt.Errorf("append: index %d not above last index %d on branch %q", rec.Index, last, b.id)
	}

	b.records = append(b.records, rec)
	if rec.EstimatedTotal > b.highestEstimate {
		b.highestEstimate = rec.EstimatedTotal
	}
	m.history = append(m.history, rec)
	return len(m.history), nil
}

// AttachResponse sets the response of the record at (index, branchID).
func (m *Memory) AttachResponse(index int, branchID, response string) error {
	b, ok := m.branches[branchID]
	if !ok {
		return fmt.Errorf("attach response: branch %q %w", branchID, ErrNotFound)
	}
	for _, rec := range b.records {
		if rec.Index == index {
			rec.Response = response
			return nil
		}
	}
	return fmt.Errorf("attach response: record %d on branch %q %w", index, branchID, ErrNotFound)
}

// Branches returns all known branch IDs in creation order, "main" first.
func (m *Memory) Branches() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// BranchCounts returns the record count of every known branch.
func (m *Memory) BranchCounts() map[string]int {
	counts := make(map[string]int, len(m.branches))
	for id, b := range m.branches {
		counts[id] = len(b.records)
	}
	return counts
}

// HistoryLength returns the total record count across all branches.
func (m *Memory) HistoryLength() int { return len(m.history) }

// OriginIndex returns the divergence index of a branch, or nil for the main
// branch and unknown branches.
func (m *Memory) OriginIndex(branchID string) *int {
	b, ok := m.branches[branchID]
	if !ok || b.parent == "" {
		return nil
	}
	origin := b.origin
	return &origin
}

// HighestEstimate returns the highest estimatedTotal seen on a branch.
func (m *Memory) HighestEstimate(branchID string) int {
	if b, ok := m.branches[branchID]; ok {
		return b.highestEstimate
	}
	return 0
}

// segment is one step of a lineage walk: a branch and the highest index of
// it that is visible from the walk's starting branch.
type segment struct {
	b     *branch
	limit int
}

// lineage returns the ancestry of branchID root-first. The target branch's
// own limit is capped at before, exclusive; each ancestor is capped at the
// divergence index of the branch below it, inclusive.
func (m *Memory) lineage(branchID string, before int) []segment {
	var rev []segment
	limit := before - 1
	for id := branchID; id != ""; {
		b, ok := m.branches[id]
		if !ok {
			return nil
		}
		rev = append(rev, segment{b: b, limit: limit})
		limit = b.origin
		id = b.parent
	}
	// Reverse to root-first order.
	out := make([]segment, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

// RecordsUpTo returns the records visible from (index, branchID) in order:
// each ancestor branch's prefix up to the divergence point, then the target
// branch's own records with index strictly below the given index. Sibling
// branches are never visible.
func (m *Memory) RecordsUpTo(index int, branchID string) []*model.ThoughtRecord {
	var out []*model.ThoughtRecord
	for _, s := range m.lineage(branchID, index) {
		for _, rec := range s.b.records {
			if rec.Index <= s.limit {
				out = append(out, rec)
			}
		}
	}
	return out
}

// Record returns the record with the given index visible from branchID:
// the branch's own records at any position, or an ancestor's records up to
// the divergence point.
func (m *Memory) Record(index int, branchID string) (*model.ThoughtRecord, bool) {
	b, ok := m.branches[branchID]
	if !ok {
		return nil, false
	}
	for _, rec := range b.records {
		if rec.Index == index {
			return rec, true
		}
	}
	limit := b.origin
	for id := b.parent; id != ""; {
		p, ok := m.branches[id]
		if !ok {
			return nil, false
		}
		for _, rec := range p.records {
			if rec.Index == index && rec.Index <= limit {
				return rec, true
			}
		}
		limit = p.origin
		id = p.parent
	}
	return nil, false
}

// ownerOf returns the branch holding a record with the given index,
// searching main first and then branches in creation order. The search is
// flat, not lineage-scoped: if sibling branches both hold the index, the
// earliest-created branch wins.
func (m *Memory) ownerOf(index int) (string, bool) {
	for _, id := range m.order {
		for _, rec := range m.branches[id].records {
			if rec.Index == index {
				return id, true
			}
		}
	}
	return "", false
}
