// Package controller aggregates progress across the chunk transfers of one
// download and carries its pause state.
//
// Writes go through UpdateProgress and SetTotalSize. Every accessor is a
// lock-free read, so an observer may see a value that trails a concurrent
// writer by one update.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
)

// Status is the derived state of a download.
type Status int32

const (
	NotStarted Status = iota
	Paused
	Downloading
	Done
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Paused:
		return "paused"
	case Downloading:
		return "downloading"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// UnknownProgress is returned by Progress while the total size is unknown.
const UnknownProgress = -1.0

type Controller struct {
	totalSize  atomic.Int64
	downloaded atomic.Int64
	paused     atomic.Bool

	mu     sync.Mutex
	slices map[string]int64

	pauseMu sync.Mutex
	resume  chan struct{} // closed on Unpause; nil while running
}

func New() *Controller {
	return &Controller{slices: make(map[string]int64)}
}

// SetTotalSize records size if no total size has been set yet.
func (c *Controller) SetTotalSize(size int64) {
	if size <= 0 {
		return
	}
	c.totalSize.CompareAndSwap(0, size)
}

// UpdateProgress records the cumulative byte count of one chunk. An empty
// chunkID before any slice has reported means single-stream mode and sets the
// total directly.
func (c *Controller) UpdateProgress(downloaded int64, chunkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chunkID == "" && len(c.slices) == 0 {
		c.downloaded.Store(downloaded)
		return
	}
	c.slices[chunkID] = downloaded
	var sum int64
	for _, n := range c.slices {
		sum += n
	}
	c.downloaded.Store(sum)
}

func (c *Controller) Pause() {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if c.paused.Load() {
		return
	}
	c.resume = make(chan struct{})
	c.paused.Store(true)
}

func (c *Controller) Unpause() {
	c.pauseMu.Lock()
	defer c.pauseMu.Unlock()
	if !c.paused.Load() {
		return
	}
	c.paused.Store(false)
	close(c.resume)
	c.resume = nil
}

// Toggle flips the pause state and reports whether the controller is now paused.
func (c *Controller) Toggle() bool {
	if c.Paused() {
		c.Unpause()
		return false
	}
	c.Pause()
	return true
}

// WaitWhilePaused blocks until the controller is unpaused or ctx is done.
// It returns immediately when not paused.
func (c *Controller) WaitWhilePaused(ctx context.Context) error {
	for {
		c.pauseMu.Lock()
		resume := c.resume
		c.pauseMu.Unlock()
		if resume == nil {
			return nil
		}
		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Controller) Paused() bool {
	return c.paused.Load()
}

func (c *Controller) TotalSize() int64 {
	return c.totalSize.Load()
}

func (c *Controller) Downloaded() int64 {
	return c.downloaded.Load()
}

func (c *Controller) Status() Status {
	downloaded := c.downloaded.Load()
	total := c.totalSize.Load()
	switch {
	case downloaded == 0:
		return NotStarted
	case c.paused.Load():
		return Paused
	case total > 0 && downloaded == total:
		return Done
	default:
		return Downloading
	}
}

// Progress returns the completed percentage, or UnknownProgress.
func (c *Controller) Progress() float64 {
	total := c.totalSize.Load()
	if total == 0 {
		return UnknownProgress
	}
	return float64(c.downloaded.Load()) / float64(total) * 100
}
