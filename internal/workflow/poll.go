package workflow

import (
	"context"
	"errors"
	"net/http"
	"time"

	"signaware-client/internal/gateway"
	"signaware-client/internal/shared/telemetry"
)

// Backoff is a capped exponential polling schedule.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	// MaxErrors is how many consecutive failed polls are tolerated.
	MaxErrors int
}

// DefaultBackoff polls after 1s, 2s, 4s, 8s, then every 10s.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 10 * time.Second, MaxErrors: 3}

func (b Backoff) next(d time.Duration) time.Duration {
	if d <= 0 {
		d = b.Initial
		if d <= 0 {
			d = time.Second
		}
		return d
	}
	d *= 2
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// AwaitResult polls the tracked processing submission id until it
// completes or fails. A completed payload is persisted, the workflow moves
// to completed and navigates to the ready view. If id is not the tracked
// processing submission, or a newer Submit begins while polling, it
// returns ErrSuperseded and writes nothing.
func (w *Workflow) AwaitResult(ctx context.Context, id string) (gateway.AnalysisResponse, error) {
	gen, pollCtx, done, err := w.track(ctx, id)
	if err != nil {
		return gateway.AnalysisResponse{}, err
	}
	defer done()

	var (
		delay    time.Duration
		failures int
	)
	for {
		delay = w.poll.next(delay)
		select {
		case <-pollCtx.Done():
			return gateway.AnalysisResponse{}, w.pollStopped(ctx, gen)
		case <-time.After(delay):
		}

		resp, err := w.gw.GetAnalysisStatus(pollCtx, id)
		if err != nil {
			if pollCtx.Err() != nil {
				return gateway.AnalysisResponse{}, w.pollStopped(ctx, gen)
			}
			failures++
			if !pollRetryable(err) || failures > w.poll.MaxErrors {
				return gateway.AnalysisResponse{}, err
			}
			telemetry.Warn("workflow.poll_failed", map[string]any{"analysis_id": id, "attempt": failures, "error": err})
			continue
		}
		failures = 0

		switch resp.Status {
		case gateway.StatusProcessing:
			telemetry.Debug("workflow.poll", map[string]any{"analysis_id": id, "next_delay_ms": w.poll.next(delay).Milliseconds()})
			continue
		case gateway.StatusCompleted:
			if resp.Analysis == nil {
				w.settleTracked(gen, id, StateFailed, "Analysis failed")
				return resp, &FailedError{ID: id, Message: "Analysis failed"}
			}
			var settled bool
			saved, err := w.persist(pollCtx, gen, resp, func() {
				settled = w.settleTracked(gen, id, StateCompleted, "")
			})
			if err != nil {
				return resp, &FailedError{ID: id, Message: "Failed to save analysis result", Err: err}
			}
			if !saved {
				telemetry.Info("workflow.poll_superseded", map[string]any{"analysis_id": id})
				return resp, ErrSuperseded
			}
			if settled {
				w.nav.ShowResult(id, ModeReady)
			}
			return resp, nil
		default:
			msg := resp.Message()
			if msg == "" {
				msg = "Analysis failed"
			}
			w.settleTracked(gen, id, StateFailed, msg)
			return resp, &FailedError{ID: id, Message: msg}
		}
	}
}

// pollStopped explains why a poll context ended.
func (w *Workflow) pollStopped(parent context.Context, gen uint64) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if !w.current(gen) {
		return ErrSuperseded
	}
	return context.Canceled
}

// settleTracked moves a tracked processing submission to its final state.
func (w *Workflow) settleTracked(gen uint64, id string, state State, msg string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.snap.AnalysisID != id || w.snap.State != StateProcessing {
		return false
	}
	w.snap.State = state
	w.snap.Error = msg
	w.snap.Progress = 0
	w.publishLocked()
	return true
}

// pollRetryable reports whether a failed status poll should be retried on
// the next tick. Client errors other than rate limiting are final.
func pollRetryable(err error) bool {
	if gateway.IsValidation(err) {
		return false
	}
	var tErr *gateway.TransportError
	if errors.As(err, &tErr) {
		if tErr.StatusCode == 0 || tErr.StatusCode == http.StatusTooManyRequests || tErr.StatusCode >= 500 {
			return true
		}
		return false
	}
	return true
}
