// AngelaMos | 2026
// writer.go

package user

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrWriterClosed = errors.New("user writer closed")

type WriterOptions struct {
	QueueSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

type writeOp struct {
	rec     Record
	barrier chan struct{}
}

// Writer persists user snapshots in the background, one at a time and in
// the order they were handed over. Failures are logged, never returned to
// the mutator.
type Writer struct {
	repo    Repository
	queue   chan writeOp
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewWriter(repo Repository, opts WriterOptions) *Writer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Writer{
		repo:    repo,
		queue:   make(chan writeOp, opts.QueueSize),
		timeout: opts.WriteTimeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Persist enqueues rec. It blocks only while the queue is full.
func (w *Writer) Persist(rec Record) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.logger.Error("user write dropped",
			"device_id", rec.DeviceID,
			"error", ErrWriterClosed,
		)
		return
	}
	w.queue <- writeOp{rec: rec}
}

// Flush waits until every write enqueued before the call has been applied.
func (w *Writer) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWriterClosed
	}
	select {
	case w.queue <- writeOp{barrier: barrier}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and waits for the queue to drain.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for op := range w.queue {
		if op.barrier != nil {
			close(op.barrier)
			continue
		}
		w.write(op.rec)
	}
}

func (w *Writer) write(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.repo.Put(ctx, &rec); err != nil {
		w.logger.Error("user write failed",
			"device_id", rec.DeviceID,
			"error", err,
		)
	}
}

var _ Persister = (*Writer)(nil)
