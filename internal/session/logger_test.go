package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type failingStore struct {
	NoopStore
	err error
}

func (s *failingStore) Update(ctx context.Context, sess *Session) error       { return s.err }
func (s *failingStore) SetCurrent(ctx context.Context, sessionID string) error { return s.err }

func TestLoggingStore_WarnsOncePerOperation(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	store := NewLoggingStore(&failingStore{err: errors.New("disk full")}, warn)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Update(ctx, &Session{ID: "s1"}); err == nil {
			t.Fatal("Update() error = nil, want error")
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings after repeated Update failures, want 1: %v", len(warnings), warnings)
	}

	if err := store.SetCurrent(ctx, "s1"); err == nil {
		t.Fatal("SetCurrent() error = nil, want error")
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings after a second failing operation, want 2: %v", len(warnings), warnings)
	}
}

func TestLoggingStore_NoWarningOnSuccess(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	store := NewLoggingStore(&NoopStore{}, warn)

	if err := store.Create(context.Background(), &Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("got warnings %v, want none", warnings)
	}
}
