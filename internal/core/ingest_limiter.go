package core

// ingest_limiter.go bounds how many batch ingests are decoded at once.
//
// A batch is buffered whole before the store swap, so parallel ingests of
// large spreadsheets multiply memory use. Requests that cannot get a slot
// within maxWait fail with ErrTooManyIngests.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyIngests is returned when every ingest slot stayed occupied for
// the whole wait. Clients should retry after a short delay.
var ErrTooManyIngests = errors.New("too many concurrent ingests, please try again later")

const (
	// DefaultMaxConcurrentIngests is the default limit for parallel ingests.
	DefaultMaxConcurrentIngests = 2

	// DefaultIngestWait is how long to wait for a slot before rejecting.
	DefaultIngestWait = 10 * time.Second
)

// IngestLimiter is a counting semaphore over ingest requests.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewIngestLimiter allows at most maxConcurrent simultaneous ingests.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultIngestWait
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it when done.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyIngests
	}
}

// Release returns a slot taken by Acquire.
func (l *IngestLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of ingests holding a slot.
func (l *IngestLimiter) Active() int {
	return int(l.active.Load())
}

// WaitForDrain blocks until no ingest holds a slot or ctx is done.
// Used during shutdown.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
