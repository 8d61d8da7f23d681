package signal

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/samsaffron/term-agent/internal/turn"
)

func TestWatchTurnCancelsOnInterrupt(t *testing.T) {
	token := turn.NewCancelToken()
	ctx, restore := WatchTurn(context.Background(), token)
	defer restore()

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGINT")
	}

	// The token is cancelled before the context, so it is settled here.
	if !token.Cancelled() {
		t.Error("token not cancelled")
	}
	if err := token.Check(); err == nil || !turn.IsCancelled(err) {
		t.Errorf("Check = %v, want turn cancellation", err)
	}
}

func TestWatchTurnRestoreCancelsContext(t *testing.T) {
	token := turn.NewCancelToken()
	ctx, restore := WatchTurn(context.Background(), token)

	restore()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("restore did not cancel the context")
	}
	if token.Cancelled() {
		t.Error("restore must not cancel the token")
	}
}
