// Package window counts generation requests in the current hour.
package window

import (
	"context"
	"sync"
	"time"
)

// Counter tracks requests dispatched within an hourly window.
type Counter interface {
	// Count returns the number of requests in the window ending at now.
	Count(ctx context.Context, now time.Time) (int, error)
	// Add records one request at now.
	Add(ctx context.Context, now time.Time) error
}

// LocalCounter is a per-process trailing one-hour window.
type LocalCounter struct {
	mu     sync.Mutex
	span   time.Duration
	events []time.Time
}

// NewLocal creates a trailing window of one hour.
func NewLocal() *LocalCounter {
	return &LocalCounter{span: time.Hour}
}

// Count returns the requests in (now-1h, now].
func (c *LocalCounter) Count(_ context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(now)
	return len(c.events), nil
}

// Add records a request at now.
func (c *LocalCounter) Add(_ context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(now)
	c.events = append(c.events, now)
	return nil
}

func (c *LocalCounter) prune(now time.Time) {
	cutoff := now.Add(-c.span)
	kept := c.events[:0]
	for _, ts := range c.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	c.events = kept
}
