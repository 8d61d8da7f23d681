package turn

import (
	"errors"
	"sync"
)

// CancelledError reports that the current turn was cancelled by the user.
// It is deliberately distinct from context cancellation so turn-scoped
// handling never swallows an unrelated interrupt.
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string {
	if e.Reason == "" {
		return "turn cancelled"
	}
	return "turn cancelled: " + e.Reason
}

// IsCancelled reports whether err is a turn cancellation.
func IsCancelled(err error) bool {
	var cancelled *CancelledError
	return errors.As(err, &cancelled)
}

// CancelToken is a cooperative cancellation flag, set from a signal handler
// goroutine and polled by the turn loop between chunks. It never interrupts
// a blocking operation directly; a token is created fresh for each turn.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	reason    string
}

func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token cancelled and records the reason. Idempotent.
func (t *CancelToken) Cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	t.reason = reason
}

func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Check returns nil while the token is active, and a *CancelledError once it
// has been cancelled.
func (t *CancelToken) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.cancelled {
		return nil
	}
	reason := t.reason
	if reason == "" {
		reason = "cancelled"
	}
	return &CancelledError{Reason: reason}
}
