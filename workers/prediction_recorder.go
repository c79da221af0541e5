package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eamhc/db"
	"eamhc/emotion"
	"eamhc/models"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

var (
	errQueueFull = errors.New("recorder queue is full")
	errStopped   = errors.New("recorder is stopped")
)

// PredictionRecorder persists predictions off the request path. Saves are
// best effort: a full queue or a failed insert drops the row and logs it,
// it never blocks or fails the request that produced it.
type PredictionRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan models.Prediction

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}

	saved  int64
	failed int64
}

// NewPredictionRecorder creates a recorder with room for queueSize pending
// rows. Call Start before Enqueue.
func NewPredictionRecorder(database *gorm.DB, queueSize int, logger *zap.Logger) *PredictionRecorder {
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionRecorder{
		db:     database,
		logger: logger.Named("recorder"),
		queue:  make(chan models.Prediction, queueSize),
		done:   make(chan struct{}),
	}
}

// Start runs the insert loop in its own goroutine.
func (r *PredictionRecorder) Start() {
	go func() {
		defer close(r.done)
		for p := range r.queue {
			r.write(p)
		}
	}()
}

// Enqueue schedules p for insertion without waiting. It fails with
// emotion.ErrPersistence when the queue is full or the recorder stopped.
func (r *PredictionRecorder) Enqueue(p models.Prediction) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return fmt.Errorf("%w: %w", emotion.ErrPersistence, errStopped)
	}
	if p.CreatedAt == nil {
		t := time.Now()
		p.CreatedAt = &t
	}
	select {
	case r.queue <- p:
		return nil
	default:
		r.logger.Warn("dropping prediction, queue full",
			zap.String("user_id", p.UserID),
			zap.String("label", p.Label))
		return fmt.Errorf("%w: %w", emotion.ErrPersistence, errQueueFull)
	}
}

// Stop refuses new rows and waits for the queued ones to be written, or for
// ctx to end.
func (r *PredictionRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		r.mu.RLock()
		saved, failed := r.saved, r.failed
		r.mu.RUnlock()
		r.logger.Info("recorder stopped", zap.Int64("saved", saved), zap.Int64("failed", failed))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns how many rows wait in the queue.
func (r *PredictionRecorder) Pending() int { return len(r.queue) }

func (r *PredictionRecorder) write(p models.Prediction) {
	err := db.CreatePrediction(r.db, &p)

	r.mu.Lock()
	if err != nil {
		r.failed++
	} else {
		r.saved++
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("prediction not saved",
			zap.String("user_id", p.UserID),
			zap.String("label", p.Label),
			zap.Error(err))
		return
	}
	r.logger.Debug("prediction saved", zap.Int64("id", p.ID), zap.String("user_id", p.UserID))
}
