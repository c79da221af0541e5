package emotion

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds simultaneous classifier invocations when the
// configuration leaves it unset.
const DefaultMaxConcurrent = 4

// Limiter caps how many calls reach the wrapped classifier at once. Extra
// callers queue until a slot frees up or their context ends.
type Limiter struct {
	next    Classifier
	sem     *semaphore.Weighted
	limit   int64
	metrics *Metrics

	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewLimiter wraps next. limit <= 0 falls back to DefaultMaxConcurrent.
func NewLimiter(next Classifier, limit int, metrics *Metrics) *Limiter {
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return &Limiter{
		next:    next,
		sem:     semaphore.NewWeighted(int64(limit)),
		limit:   int64(limit),
		metrics: metrics,
	}
}

func (l *Limiter) Name() string { return l.next.Name() }

// Limit returns the configured bound.
func (l *Limiter) Limit() int { return int(l.limit) }

// Peak returns the highest number of concurrent calls observed.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

func (l *Limiter) Classify(ctx context.Context, text string) (*Prediction, error) {
	// Reject bad input before it occupies a queue position.
	if _, err := NormalizeText(text, 0); err != nil {
		return nil, err
	}

	l.metrics.queued(1)
	err := l.sem.Acquire(ctx, 1)
	l.metrics.queued(-1)
	if err != nil {
		return nil, contextFailure(err, nil)
	}
	defer l.sem.Release(1)

	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}

	l.metrics.inFlight(1)
	defer l.metrics.inFlight(-1)
	return l.next.Classify(ctx, text)
}
