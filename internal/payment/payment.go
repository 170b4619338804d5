// ABOUTME: Payment status container for the checkout flow
// ABOUTME: Tracks idle, processing, success, and error with the last error message

package payment

import (
	"log/slog"
	"sync"
)

// Status is the payment flow state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// State is a snapshot of the payment container.
type State struct {
	Status Status
	Error  string
}

// Tracker holds the payment status. It is not persisted; a new process
// starts idle.
type Tracker struct {
	logger *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewTracker creates an idle tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger: logger.With("component", "payment"),
		state:  State{Status: StatusIdle},
	}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Start marks a payment as handed off to the payment provider.
func (t *Tracker) Start() {
	t.set(State{Status: StatusProcessing})
}

// Succeed marks the payment as confirmed.
func (t *Tracker) Succeed() {
	t.set(State{Status: StatusSuccess})
}

// Fail records a payment error.
func (t *Tracker) Fail(err error) {
	msg := "payment failed"
	if err != nil {
		msg = err.Error()
	}
	t.set(State{Status: StatusError, Error: msg})
}

// Reset returns to idle.
func (t *Tracker) Reset() {
	t.set(State{Status: StatusIdle})
}

func (t *Tracker) set(s State) {
	t.mu.Lock()
	prev := t.state.Status
	t.state = s
	t.mu.Unlock()

	if prev != s.Status {
		t.logger.Debug("payment status changed", "from", prev, "to", s.Status, "error", s.Error)
	}
}
