package llm

import (
	"context"
	"io"
)

// eventStream adapts a producer function to the Stream interface. The
// producer runs in its own goroutine and writes events to the channel;
// its return value becomes the terminal error surfaced by Recv after
// all buffered events have been consumed.
type eventStream struct {
	events chan Event
	cancel context.CancelFunc
	err    error
}

func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan Event, 64),
		cancel: cancel,
	}
	go func() {
		defer close(s.events)
		s.err = produce(ctx, s.events)
	}()
	return s
}

func (s *eventStream) Recv() (Event, error) {
	event, ok := <-s.events
	if !ok {
		if s.err != nil {
			return Event{}, s.err
		}
		return Event{}, io.EOF
	}
	return event, nil
}

// Close cancels the producer and drains any events it has in flight so
// a producer blocked on a send can observe cancellation and exit.
func (s *eventStream) Close() error {
	s.cancel()
	go func() {
		for range s.events {
		}
	}()
	return nil
}

// chooseModel prefers a per-request model override over the provider default.
func chooseModel(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
