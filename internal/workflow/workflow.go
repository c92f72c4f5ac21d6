// Package workflow runs an analysis submission from input to a persisted
// result and tells the UI where to go next.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/telemetry"
)

// State is the submission state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateUploading  State = "uploading"
	StateAnalyzing  State = "analyzing"
	StateCompleted  State = "completed"
	StateProcessing State = "processing"
	StateFailed     State = "failed"
)

// Mode tells the result view whether the payload is ready.
type Mode string

const (
	ModeReady      Mode = "ready"
	ModeProcessing Mode = "processing"
)

// Navigator moves the UI to the result view.
type Navigator interface {
	ShowResult(id string, mode Mode)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(id string, mode Mode)

func (f NavigatorFunc) ShowResult(id string, mode Mode) { f(id, mode) }

// Gateway is the subset of the backend client the workflow drives.
type Gateway interface {
	AnalyzeDocument(ctx context.Context, req gateway.AnalysisRequest, onProgress func(gateway.UploadProgress)) (gateway.AnalysisResponse, error)
	GetAnalysisStatus(ctx context.Context, id string) (gateway.AnalysisResponse, error)
}

// ResultSaver persists a completed payload for the result view.
type ResultSaver interface {
	Save(ctx context.Context, a gateway.Analysis) error
}

// Snapshot is the observable workflow state.
type Snapshot struct {
	State      State  `json:"state"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	AnalysisID string `json:"analysisId,omitempty"`
}

// Busy reports whether a submission is in flight.
func (s Snapshot) Busy() bool {
	switch s.State {
	case StateSubmitting, StateUploading, StateAnalyzing:
		return true
	}
	return false
}

// FailedError is returned by Submit when the analysis did not succeed.
// Message is what the user sees, verbatim.
type FailedError struct {
	ID      string
	Message string
	Err     error
}

func (e *FailedError) Error() string { return e.Message }

func (e *FailedError) Unwrap() error { return e.Err }

// ErrSuperseded is returned by AwaitResult when a newer submission took
// over tracking before the polled analysis settled.
var ErrSuperseded = errors.New("workflow: submission superseded")

// Workflow tracks one submission at a time. A new Submit supersedes
// tracking of the previous one; the superseded request is not cancelled
// and its outcome is discarded.
type Workflow struct {
	gw      Gateway
	results ResultSaver
	nav     Navigator
	metrics *metrics.Metrics
	poll    Backoff

	// persistMu orders result writes against begin so a superseded
	// submission never overwrites the stored payload of a newer one.
	persistMu sync.Mutex

	mu       sync.Mutex
	gen      uint64
	snap     Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	polls    map[int]context.CancelFunc
	nextPoll int
}

// Option customizes a Workflow.
type Option func(*Workflow)

// WithMetrics records submission outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

// WithPollBackoff sets the AwaitResult polling cadence.
func WithPollBackoff(b Backoff) Option {
	return func(w *Workflow) { w.poll = b }
}

// New builds an idle Workflow. nav may be nil.
func New(gw Gateway, results ResultSaver, nav Navigator, opts ...Option) *Workflow {
	if nav == nil {
		nav = NavigatorFunc(func(string, Mode) {})
	}
	w := &Workflow{
		gw:      gw,
		results: results,
		nav:     nav,
		poll:    DefaultBackoff,
		snap:    Snapshot{State: StateIdle},
		subs:    make(map[int]chan Snapshot),
		polls:   make(map[int]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit runs req to a terminal state. A request with neither file nor
// text is a no-op. Failures are reflected in Snapshot and returned as
// *FailedError; a superseded submission returns nil.
//
// pending is the analysis id when this submission is still tracked and the
// backend is still processing it; pass it to AwaitResult.
func (w *Workflow) Submit(ctx context.Context, req gateway.AnalysisRequest) (pending string, err error) {
	kind := req.Kind()
	if kind == "" {
		return "", nil
	}
	start := time.Now()
	gen := w.begin()
	telemetry.Info("workflow.submit", map[string]any{"kind": kind, "generation": gen})

	if kind == "file" {
		w.update(gen, func(s *Snapshot) { s.State = StateUploading })
	} else {
		w.update(gen, func(s *Snapshot) { s.State = StateAnalyzing })
	}

	resp, err := w.gw.AnalyzeDocument(ctx, req, func(p gateway.UploadProgress) {
		w.update(gen, func(s *Snapshot) {
			if p.Percentage > s.Progress {
				s.Progress = p.Percentage
			}
			if s.Progress >= 100 {
				s.State = StateAnalyzing
			} else {
				s.State = StateUploading
			}
		})
	})

	outcome, err := w.settle(ctx, gen, resp, err)
	w.metrics.ObserveSubmission(kind, outcome, time.Since(start).Seconds())
	telemetry.Info("workflow.settled", map[string]any{"kind": kind, "outcome": outcome, "analysis_id": resp.ID})
	if outcome == "processing" {
		return resp.ID, err
	}
	return "", err
}

func (w *Workflow) settle(ctx context.Context, gen uint64, resp gateway.AnalysisResponse, err error) (string, error) {
	if !w.current(gen) {
		return "superseded", nil
	}
	if err != nil {
		return "failed", w.fail(gen, resp.ID, err.Error(), err)
	}

	switch resp.Status {
	case gateway.StatusCompleted:
		if resp.Analysis == nil {
			return "failed", w.fail(gen, resp.ID, "Analysis failed", nil)
		}
		saved, err := w.persist(ctx, gen, resp, func() { w.finish(gen, StateCompleted, resp.ID) })
		if err != nil {
			telemetry.Error("workflow.persist_failed", map[string]any{"analysis_id": resp.ID, "error": err})
			return "failed", w.fail(gen, resp.ID, "Failed to save analysis result", err)
		}
		if !saved {
			return "superseded", nil
		}
		w.nav.ShowResult(resp.ID, ModeReady)
		return "completed", nil
	case gateway.StatusProcessing:
		if !w.finish(gen, StateProcessing, resp.ID) {
			return "superseded", nil
		}
		w.nav.ShowResult(resp.ID, ModeProcessing)
		return "processing", nil
	case gateway.StatusFailed:
		msg := resp.Message()
		if msg == "" {
			msg = "Analysis failed"
		}
		return "failed", w.fail(gen, resp.ID, msg, nil)
	}
	return "failed", w.fail(gen, resp.ID, fmt.Sprintf("Unexpected analysis status %q", resp.Status), nil)
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// ClearError dismisses a failure and returns the workflow to idle.
func (w *Workflow) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snap.Error == "" {
		return
	}
	w.snap.Error = ""
	if w.snap.State == StateFailed {
		w.snap.State = StateIdle
	}
	w.publishLocked()
}

// Subscribe delivers state changes. The channel holds only the latest
// snapshot, so slow readers skip intermediate progress but never miss the
// final state. Call the returned func to unsubscribe.
func (w *Workflow) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	ch <- w.snap
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(ch)
		})
	}
}

func (w *Workflow) begin() uint64 {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, cancel := range w.polls {
		cancel()
		delete(w.polls, id)
	}
	w.gen++
	w.snap = Snapshot{State: StateSubmitting}
	w.publishLocked()
	return w.gen
}

// persist saves the completed payload and applies settle while gen is
// still the tracked submission. It reports false when gen was superseded,
// in which case nothing is written.
func (w *Workflow) persist(ctx context.Context, gen uint64, resp gateway.AnalysisResponse, settle func()) (bool, error) {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	if !w.current(gen) {
		return false, nil
	}
	if err := w.results.Save(ctx, *resp.Analysis); err != nil {
		return true, err
	}
	settle()
	return true, nil
}

// track ties a poll for id to the generation that is processing it. The
// returned context is cancelled when a new submission begins.
func (w *Workflow) track(ctx context.Context, analysisID string) (uint64, context.Context, func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snap.State != StateProcessing || w.snap.AnalysisID != analysisID {
		return 0, nil, nil, ErrSuperseded
	}
	ctx, cancel := context.WithCancel(ctx)
	id := w.nextPoll
	w.nextPoll++
	w.polls[id] = cancel
	return w.gen, ctx, func() {
		w.mu.Lock()
		delete(w.polls, id)
		w.mu.Unlock()
		cancel()
	}, nil
}

func (w *Workflow) current(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gen == gen
}

// update applies fn when gen is still the tracked submission.
func (w *Workflow) update(gen uint64, fn func(*Snapshot)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return false
	}
	fn(&w.snap)
	w.publishLocked()
	return true
}

func (w *Workflow) finish(gen uint64, state State, id string) bool {
	return w.update(gen, func(s *Snapshot) {
		s.State = state
		s.Progress = 0
		s.Error = ""
		s.AnalysisID = id
	})
}

func (w *Workflow) fail(gen uint64, id, msg string, cause error) error {
	w.update(gen, func(s *Snapshot) {
		s.State = StateFailed
		s.Progress = 0
		s.Error = msg
		s.AnalysisID = id
	})
	telemetry.Warn("workflow.failed", map[string]any{"analysis_id": id, "message": msg})
	return &FailedError{ID: id, Message: msg, Err: cause}
}

// publishLocked must be called with mu held.
func (w *Workflow) publishLocked() {
	for _, ch := range w.subs {
		select {
		case ch <- w.snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- w.snap:
			default:
			}
		}
	}
}
