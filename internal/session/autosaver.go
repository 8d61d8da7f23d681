package session

import (
	"sync"
	"time"

	"github.com/samsaffron/term-agent/internal/llm"
)

// PersistFunc writes one conversation snapshot to durable storage.
type PersistFunc func(messages []llm.Message) error

// Autosaver coalesces rapid save requests into single writes. A background
// worker holds at most one pending snapshot; bursts of requests overwrite
// the slot so only the newest conversation state reaches storage.
type Autosaver struct {
	mu      sync.Mutex
	pending []llm.Message
	stopped bool

	wake    chan struct{}
	done    chan struct{}
	persist PersistFunc
}

// NewAutosaver starts the background worker.
func NewAutosaver(persist PersistFunc) *Autosaver {
	a := &Autosaver{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		persist: persist,
	}
	go a.loop()
	return a
}

// RequestSave schedules a snapshot for persistence without blocking. A
// request arriving before the worker has taken the previous one replaces it;
// only the latest snapshot survives. Requests after Close are dropped.
func (a *Autosaver) RequestSave(messages []llm.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.pending = messages
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close requests a final flush and waits up to timeout for the worker to
// drain. Safe to call more than once.
func (a *Autosaver) Close(timeout time.Duration) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	close(a.wake)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(timeout):
	}
}

func (a *Autosaver) loop() {
	defer close(a.done)
	for {
		_, ok := <-a.wake

		for {
			a.mu.Lock()
			msgs := a.pending
			a.pending = nil
			a.mu.Unlock()

			if len(msgs) == 0 {
				break
			}
			// Persistence is best-effort; a failed save never interrupts
			// the conversation.
			_ = a.persist(msgs)
		}

		if !ok {
			return
		}
	}
}
