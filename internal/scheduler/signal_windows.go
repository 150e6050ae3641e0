package scheduler

import "context"

// SIGUSR1 does not exist on windows.
func watchPauseSignal(ctx context.Context, toggle func() bool) func() {
	return func() {}
}
