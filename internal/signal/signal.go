package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samsaffron/term-agent/internal/turn"
)

// NotifyContext returns a context that is cancelled when SIGINT or SIGTERM
// is received. The returned stop function should be called to release
// resources.
func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// WatchTurn bridges SIGINT to a turn cancel token for the duration of one
// turn. The first Ctrl-C cancels the token and the returned context so the
// turn can settle pending work and report the interrupt; further presses
// are absorbed until restore is called. Callers must call restore when the
// turn ends to reinstate default signal handling.
func WatchTurn(parent context.Context, token *turn.CancelToken) (ctx context.Context, restore func()) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				token.Cancel("interrupted by user")
				cancel()
			case <-done:
				return
			}
		}
	}()

	restore = func() {
		signal.Stop(ch)
		close(done)
		cancel()
	}
	return ctx, restore
}
