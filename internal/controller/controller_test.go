package controller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTotalSizeFirstWriterWins(t *testing.T) {
	c := New()
	c.SetTotalSize(1000)
	c.SetTotalSize(2000)
	assert.Equal(t, int64(1000), c.TotalSize())
}

func TestSetTotalSizeIgnoresZero(t *testing.T) {
	c := New()
	c.SetTotalSize(0)
	c.SetTotalSize(500)
	assert.Equal(t, int64(500), c.TotalSize())
}

func TestSetTotalSizeConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(size int64) {
			defer wg.Done()
			c.SetTotalSize(size)
		}(int64(i))
	}
	wg.Wait()
	total := c.TotalSize()
	assert.True(t, total >= 1 && total <= 50)
	c.SetTotalSize(999)
	assert.Equal(t, total, c.TotalSize())
}

func TestUpdateProgressSingleStream(t *testing.T) {
	c := New()
	c.SetTotalSize(100)
	c.UpdateProgress(10, "")
	assert.Equal(t, int64(10), c.Downloaded())
	c.UpdateProgress(60, "")
	assert.Equal(t, int64(60), c.Downloaded())
	assert.InDelta(t, 60.0, c.Progress(), 0.0001)
}

func TestUpdateProgressSliced(t *testing.T) {
	c := New()
	c.SetTotalSize(300)
	c.UpdateProgress(50, "0-99")
	c.UpdateProgress(20, "100-199")
	assert.Equal(t, int64(70), c.Downloaded())

	c.UpdateProgress(100, "0-99")
	assert.Equal(t, int64(120), c.Downloaded())

	c.UpdateProgress(100, "100-199")
	c.UpdateProgress(100, "200-299")
	assert.Equal(t, int64(300), c.Downloaded())
	assert.Equal(t, Done, c.Status())
	assert.InDelta(t, 100.0, c.Progress(), 0.0001)
}

func TestUpdateProgressMonotonic(t *testing.T) {
	c := New()
	c.SetTotalSize(1 << 20)
	var last int64
	for _, n := range []int64{1, 5, 5, 100, 4096, 65536} {
		c.UpdateProgress(n, "0-65535")
		got := c.Downloaded()
		assert.GreaterOrEqual(t, got, last)
		last = got
	}
}

func TestUpdateProgressConcurrent(t *testing.T) {
	const parts = 16
	const steps = 200
	c := New()
	c.SetTotalSize(parts * steps)

	var wg sync.WaitGroup
	for p := range parts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for n := int64(1); n <= steps; n++ {
				c.UpdateProgress(n, id)
			}
		}(fmt.Sprintf("part-%d", p))
	}
	wg.Wait()

	assert.Equal(t, int64(parts*steps), c.Downloaded())
	assert.Equal(t, Done, c.Status())
}

func TestStatusDerivation(t *testing.T) {
	tests := []struct {
		name       string
		downloaded int64
		paused     bool
		want       Status
	}{
		{"nothing downloaded", 0, false, NotStarted},
		{"nothing downloaded while paused", 0, true, NotStarted},
		{"half paused", 500, true, Paused},
		{"half running", 500, false, Downloading},
		{"complete", 1000, false, Done},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.SetTotalSize(1000)
			if tt.downloaded > 0 {
				c.UpdateProgress(tt.downloaded, "")
			}
			if tt.paused {
				c.Pause()
			}
			assert.Equal(t, tt.want, c.Status())
		})
	}
}

func TestStatusUnknownSizeNeverDone(t *testing.T) {
	c := New()
	c.UpdateProgress(42, "")
	assert.Equal(t, Downloading, c.Status())
	assert.Equal(t, UnknownProgress, c.Progress())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "not started", NotStarted.String())
	assert.Equal(t, "paused", Paused.String())
	assert.Equal(t, "downloading", Downloading.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestPauseToggle(t *testing.T) {
	c := New()
	assert.False(t, c.Paused())
	assert.True(t, c.Toggle())
	assert.True(t, c.Paused())
	assert.False(t, c.Toggle())
	assert.False(t, c.Paused())

	// repeated calls are harmless
	c.Unpause()
	c.Pause()
	c.Pause()
	assert.True(t, c.Paused())
}

func TestWaitWhilePausedReturnsWhenRunning(t *testing.T) {
	c := New()
	require.NoError(t, c.WaitWhilePaused(context.Background()))
}

func TestWaitWhilePausedBlocksUntilUnpause(t *testing.T) {
	c := New()
	c.Pause()

	done := make(chan error, 1)
	go func() { done <- c.WaitWhilePaused(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitWhilePaused returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	c.Unpause()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitWhilePaused did not return after Unpause")
	}
}

func TestWaitWhilePausedHonoursContext(t *testing.T) {
	c := New()
	c.Pause()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.WaitWhilePaused(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
