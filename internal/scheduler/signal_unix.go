//go:build !windows

package scheduler

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// watchPauseSignal calls toggle on every SIGUSR1 until the returned stop
// function is called or ctx ends.
func watchPauseSignal(ctx context.Context, toggle func() bool) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				toggle()
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
