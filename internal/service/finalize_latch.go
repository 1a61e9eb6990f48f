package service

import (
	"sync"

	"github.com/vanhoc/mocktest/internal/model"
)

// FinalizeState is the state of the finalize latch.
type FinalizeState int

const (
	FinalizeIdle FinalizeState = iota
	FinalizeRunning
	FinalizeFailed
	FinalizeDone
)

func (s FinalizeState) String() string {
	switch s {
	case FinalizeIdle:
		return "IDLE"
	case FinalizeRunning:
		return "FINALIZING"
	case FinalizeFailed:
		return "FAILED"
	case FinalizeDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// FinalizeLatch admits at most one finalize request at a time and none
// after success. The timer path may fire once per attempt; a failed
// auto-submit leaves only the manual path.
type FinalizeLatch struct {
	mu        sync.Mutex
	state     FinalizeState
	autoFired bool
	wait      chan struct{}
	result    *model.Attempt
	err       error
}

// NewFinalizeLatch creates an idle latch.
func NewFinalizeLatch() *FinalizeLatch {
	return &FinalizeLatch{}
}

// Begin asks to issue the finalize request. When run is false the caller
// must not call the server; wait, if non-nil, closes when the outcome is
// known.
func (l *FinalizeLatch) Begin(auto bool) (run bool, wait <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case FinalizeDone:
		closed := make(chan struct{})
		close(closed)
		return false, closed
	case FinalizeRunning:
		return false, l.wait
	}

	if auto {
		if l.autoFired {
			return false, nil
		}
		l.autoFired = true
	}

	l.state = FinalizeRunning
	l.wait = make(chan struct{})
	l.err = nil
	return true, l.wait
}

// Finish records the outcome of the request started by Begin.
func (l *FinalizeLatch) Finish(result *model.Attempt, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != FinalizeRunning {
		return
	}
	if err != nil {
		l.state = FinalizeFailed
		l.err = err
	} else {
		l.state = FinalizeDone
		l.result = result
	}
	close(l.wait)
	l.wait = nil
}

// Complete marks the attempt finalized by other means (a completed snapshot
// from the server).
func (l *FinalizeLatch) Complete(result *model.Attempt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == FinalizeRunning {
		close(l.wait)
		l.wait = nil
	}
	l.state = FinalizeDone
	l.result = result
	l.err = nil
}

// Result returns the final attempt, or the error of the last failed request.
func (l *FinalizeLatch) Result() (*model.Attempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.err
}

// State returns the current state.
func (l *FinalizeLatch) State() FinalizeState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// AutoFired reports whether the timer path has been used.
func (l *FinalizeLatch) AutoFired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autoFired
}
