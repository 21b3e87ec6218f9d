// Package engine coordinates one reasoning session: it validates incoming
// submissions, records them in session memory, builds the contextual
// digest, invokes the external reasoning collaborator, and assembles the
// outward status payload.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"seqthink/internal/collab"
	"seqthink/internal/insight"
	"seqthink/internal/model"
	"seqthink/internal/session"
)

// Status classifies one processed submission.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusValidationError Status = "validation_error"
	StatusFailed          Status = "failed"
)

// State is the session's position in its processing cycle.
type State string

const (
	StateAwaitingSubmission State = "awaiting_submission"
	StateValidating         State = "validating"
	StateRecording          State = "recording"
	StateAwaitingReasoning  State = "awaiting_reasoning"
	StateTerminal           State = "terminal"
)

// TerminalPolicy decides what happens to submissions after a record with
// continuationExpected=false completes the session.
type TerminalPolicy string

const (
	// TerminalReset starts a new logical session on the next submission.
	TerminalReset TerminalPolicy = "reset"
	// TerminalReject refuses further submissions with a validation error.
	TerminalReject TerminalPolicy = "reject"
)

// Transcript is one audit entry describing a processed submission.
type Transcript struct {
	SessionID string
	BranchID  string
	Index     int
	Kind      string
	Text      string
	Response  string
	Status    string
	Error     string
	CreatedAt time.Time
}

// Recorder persists transcripts. Recording is best-effort: failures are
// logged, never surfaced to the caller, and never block processing.
type Recorder interface {
	Record(ctx context.Context, t Transcript) error
}

// Options tune session behavior.
type Options struct {
	MinEstimatedTotal int
	TerminalPolicy    TerminalPolicy
	Recorder          Recorder
}

// Engine owns one session's memory and serializes all access to it. The
// collaborator call is issued outside the session lock so a pending
// reasoning call never blocks work on other sessions.
type Engine struct {
	mu        sync.Mutex
	mem       *session.Memory
	state     State
	extractor *insight.Extractor
	collab    collab.Collaborator
	opts      Options
	log       *zap.Logger
}

// New creates a session engine. A nil extractor uses the default rule
// table; a nil logger is replaced with a no-op logger.
func New(c collab.Collaborator, extractor *insight.Extractor, log *zap.Logger, opts Options) *Engine {
	if extractor == nil {
		extractor = insight.NewExtractor(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MinEstimatedTotal <= 0 {
		opts.MinEstimatedTotal = model.DefaultMinEstimatedTotal
	}
	if opts.TerminalPolicy == "" {
		opts.TerminalPolicy = TerminalReset
	}
	return &Engine{
		mem:       session.NewMemory(),
		state:     StateAwaitingSubmission,
		extractor: extractor,
		collab:    c,
		opts:      opts,
		log:       log,
	}
}

// SessionID returns the current logical session's identifier.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mem.ID()
}

// State returns the session's current processing state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// BranchDetail describes the processed record's branch context.
type BranchDetail struct {
	CurrentBranchID   string         `json:"currentBranchId"`
	BranchOriginIndex *int           `json:"branchOriginIndex"`
	CountsByBranch    map[string]int `json:"countsByBranch"`
}

// Outcome is the outward payload returned for every submission.
type Outcome struct {
	ProcessedIndex       int          `json:"processedIndex"`
	EstimatedTotal       int          `json:"estimatedTotal"`
	ContinuationExpected bool         `json:"continuationExpected"`
	ReasoningResponse    string       `json:"reasoningResponse"`
	Branches             []string     `json:"branches"`
	HistoryLength        int          `json:"historyLength"`
	BranchDetail         BranchDetail `json:"branchDetail"`
	IsRevision           bool         `json:"isRevision"`
	RevisesIndex         *int         `json:"revisesIndex"`
	IsBranch             bool         `json:"isBranch"`
	Status               Status       `json:"status"`
	Error                *string      `json:"error"`
}

// Process runs one submission through the full cycle: validate, append,
// digest, reason, attach, report. A validation failure returns before the
// store is touched. A collaborator failure still leaves the appended record
// in history with an empty response; partial progress is audit trail, not
// something to roll back.
func (e *Engine) Process(ctx context.Context, sub model.Submission) Outcome {
	e.mu.Lock()

	if e.mem.Terminal() {
		if e.opts.TerminalPolicy == TerminalReject {
			out := e.outcomeLocked(sub.Index, sub.BranchID, nil, StatusValidationError,
				"session is complete and no longer accepts submissions")
			tr := e.transcriptLocked(sub, "", StatusValidationError, *out.Error)
			e.mu.Unlock()
			e.record(ctx, tr)
			return out
		}
		e.log.Info("session complete, starting a new one",
			zap.String("previous_session", e.mem.ID()))
		e.mem.Reset()
		e.state = StateAwaitingSubmission
	}

	e.state = StateValidating
	rec, err := session.Validate(sub, e.mem, e.opts.MinEstimatedTotal)
	if err != nil {
		out, tr := e.rejectLocked(sub, err)
		e.mu.Unlock()
		e.record(ctx, tr)
		return out
	}

	e.state = StateRecording
	if _, err := e.mem.Append(rec); err != nil {
		// The validator vouched for this record; a store refusal is a
		// programming-contract violation, not a caller error.
		e.log.Error("store rejected a validated record", zap.Error(err))
		out := e.outcomeLocked(rec.Index, rec.BranchID, rec.RevisesIndex, StatusFailed, err.Error())
		out.IsRevision = rec.IsRevision
		out.IsBranch = rec.Kind() == model.KindBranch
		tr := e.transcriptLocked(sub, "", StatusFailed, err.Error())
		e.state = StateAwaitingSubmission
		e.mu.Unlock()
		e.record(ctx, tr)
		return out
	}

	e.log.Info("thought recorded",
		zap.String("session", e.mem.ID()),
		zap.String("summary", rec.FormatForLog()),
		zap.String("branch", rec.BranchID))

	digest := e.extractor.ContextFor(e.mem.RecordsUpTo(rec.Index, rec.BranchID))
	referenced := e.referencedTextLocked(rec)
	e.state = StateAwaitingReasoning
	e.mu.Unlock()

	// The only long-blocking operation. The session lock is released so
	// concurrent work is never stalled behind a remote call.
	text, reasonErr := e.collab.Reason(ctx, collab.Request{
		Record:         rec,
		Digest:         digest,
		ReferencedText: referenced,
	})

	e.mu.Lock()
	status := StatusSuccess
	response := ""
	errMsg := ""
	if reasonErr != nil {
		status = StatusFailed
		errMsg = reasonErr.Error()
		e.log.Warn("reasoning collaborator failed",
			zap.Int("index", rec.Index),
			zap.Error(reasonErr))
	} else {
		response = text + collab.Guidance(rec.ContinuationExpected)
	}

	if err := e.mem.AttachResponse(rec.Index, rec.BranchID, response); err != nil {
		// Possible if a concurrent submission reset the session while the
		// reasoning call was in flight. The record is gone with its
		// session; report the failure.
		e.log.Error("attach response failed", zap.Error(err))
		if status == StatusSuccess {
			status = StatusFailed
			errMsg = err.Error()
		}
	}

	if !rec.ContinuationExpected {
		e.mem.MarkTerminal()
		e.state = StateTerminal
	} else {
		e.state = StateAwaitingSubmission
	}

	out := e.outcomeLocked(rec.Index, rec.BranchID, rec.RevisesIndex, status, errMsg)
	out.ContinuationExpected = rec.ContinuationExpected
	out.ReasoningResponse = response
	out.IsRevision = rec.IsRevision
	out.IsBranch = rec.Kind() == model.KindBranch
	// outcomeLocked reads the branch's highest estimate; fall back to the
	// record's own value if the session was reset mid-flight.
	out.EstimatedTotal = max(out.EstimatedTotal, rec.EstimatedTotal)
	tr := e.transcriptLocked(sub, response, status, errMsg)
	tr.Kind = string(rec.Kind())
	e.mu.Unlock()

	e.record(ctx, tr)
	return out
}

// rejectLocked builds the payload for a validation failure. The store is
// untouched: length before equals length after.
func (e *Engine) rejectLocked(sub model.Submission, err error) (Outcome, Transcript) {
	var verr *session.ValidationError
	reason := err.Error()
	if errors.As(err, &verr) {
		e.log.Info("submission rejected",
			zap.Int("index", sub.Index),
			zap.String("rule", verr.Rule),
			zap.String("reason", verr.Reason))
	}
	e.state = StateAwaitingSubmission
	out := e.outcomeLocked(sub.Index, sub.BranchID, sub.RevisesIndex, StatusValidationError, reason)
	out.ContinuationExpected = sub.ContinuationExpected
	out.IsRevision = sub.IsRevision
	return out, e.transcriptLocked(sub, "", StatusValidationError, reason)
}

// outcomeLocked assembles the payload fields derived from current memory
// state. Callers fill in the submission-specific fields.
func (e *Engine) outcomeLocked(index int, branchID string, revises *int, status Status, errMsg string) Outcome {
	if branchID == "" {
		branchID = model.MainBranch
	}
	out := Outcome{
		ProcessedIndex: index,
		EstimatedTotal: e.mem.HighestEstimate(branchID),
		Branches:       e.mem.Branches(),
		HistoryLength:  e.mem.HistoryLength(),
		BranchDetail: BranchDetail{
			CurrentBranchID:   branchID,
			BranchOriginIndex: e.mem.OriginIndex(branchID),
			CountsByBranch:    e.mem.BranchCounts(),
		},
		RevisesIndex: revises,
		Status:       status,
	}
	if errMsg != "" {
		out.Error = &errMsg
	}
	return out
}

// referencedTextLocked resolves the text of the record a revision or branch
// points at, while the lock still guarantees a consistent snapshot.
func (e *Engine) referencedTextLocked(rec *model.ThoughtRecord) string {
	var target *int
	switch rec.Kind() {
	case model.KindRevision:
		target = rec.RevisesIndex
	case model.KindBranch:
		target = rec.BranchOrigin
	default:
		return ""
	}
	if ref, ok := e.mem.Record(*target, rec.BranchID); ok {
		return ref.Text
	}
	return ""
}

func (e *Engine) transcriptLocked(sub model.Submission, response string, status Status, errMsg string) Transcript {
	branchID := sub.BranchID
	if branchID == "" {
		branchID = model.MainBranch
	}
	kind := string(model.KindStandard)
	switch {
	case sub.IsRevision:
		kind = string(model.KindRevision)
	case sub.BranchOrigin != nil:
		kind = string(model.KindBranch)
	}
	return Transcript{
		SessionID: e.mem.ID(),
		BranchID:  branchID,
		Index:     sub.Index,
		Kind:      kind,
		Text:      sub.Text,
		Response:  response,
		Status:    string(status),
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
}

func (e *Engine) record(ctx context.Context, tr Transcript) {
	if e.opts.Recorder == nil {
		return
	}
	if err := e.opts.Recorder.Record(ctx, tr); err != nil {
		e.log.Warn("transcript record failed", zap.Error(err))
	}
}
