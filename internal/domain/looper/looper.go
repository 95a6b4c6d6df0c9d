package looper

import (
	"context"
	"errors"
	"sync"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrStopped is returned for work submitted to a looper that has shut down.
var ErrStopped = errors.New("looper stopped")

// DefaultQueueSize bounds the task queue. Fire-and-forget posts beyond
// it are dropped; synchronous calls block until there is room.
const DefaultQueueSize = 1024

type task struct {
	fn func()
}

// Looper serializes all UI work onto one goroutine.
//
// The goroutine that calls Run becomes the UI thread: lifecycle hooks,
// posted updates, and synchronous Do calls all execute there, one at a
// time. Work must never block; a slow task stalls every activity.
type Looper struct {
	logger *logging.Logger
	tasks  chan task

	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	running atomic.Bool

	executed atomic.Int64
	dropped  atomic.Int64
}

// New creates a looper with the default queue size.
func New(logger *logging.Logger) *Looper {
	return NewWithQueueSize(logger, DefaultQueueSize)
}

// NewWithQueueSize creates a looper with an explicit queue bound.
func NewWithQueueSize(logger *logging.Logger, size int) *Looper {
	if logger == nil {
		logger = logging.NewNop()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Looper{
		logger:  logger.Named("looper"),
		tasks:   make(chan task, size),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run claims the calling goroutine as the UI thread and processes tasks
// until the context is canceled or Stop is called. It returns only once
// the loop has fully wound down; call it from a dedicated goroutine.
func (l *Looper) Run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		l.logger.Warn("looper already running")
		return
	}
	defer close(l.stopped)

	l.logger.Info("ui loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ui loop stopped", zap.Int64("executed", l.executed.Load()))
			return
		case <-l.quit:
			l.logger.Info("ui loop stopped", zap.Int64("executed", l.executed.Load()))
			return
		case t := <-l.tasks:
			l.exec(t)
		}
	}
}

// exec runs one task. A panicking task is contained so a buggy activity
// cannot take down the loop.
func (l *Looper) exec(t task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("ui task panicked", zap.Any("panic", r))
		}
	}()
	t.fn()
	l.executed.Inc()
}

// Post enqueues fire-and-forget work for the UI thread. Posts to a
// stopped looper, or posts that find the queue full, are dropped;
// droppable is the contract for UI updates.
func (l *Looper) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.quit:
		l.dropped.Inc()
		return
	default:
	}
	select {
	case l.tasks <- task{fn: fn}:
	case <-l.quit:
		l.dropped.Inc()
	default:
		l.dropped.Inc()
		l.logger.Warn("ui queue full, post dropped")
	}
}

// Do runs fn on the UI thread and waits for its error. Callers off the
// UI thread use this to touch navigation state safely; calling Do from
// the UI thread itself would deadlock, post instead.
func (l *Looper) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	select {
	case <-l.quit:
		return ErrStopped
	default:
	}

	errc := make(chan error, 1)
	t := task{fn: func() { errc <- fn() }}

	select {
	case l.tasks <- t:
	case <-l.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		// The loop may have executed the task on its way out.
		select {
		case err := <-errc:
			return err
		default:
			return ErrStopped
		}
	}
}

// Stop shuts the loop down and waits for it to exit. Safe to call more
// than once and before Run.
func (l *Looper) Stop() {
	l.once.Do(func() { close(l.quit) })
	if l.running.Load() {
		<-l.stopped
	}
}

// Pending returns the number of queued tasks.
func (l *Looper) Pending() int {
	return len(l.tasks)
}

// Executed returns how many tasks have run.
func (l *Looper) Executed() int64 {
	return l.executed.Load()
}

// Dropped returns how many posts were discarded.
func (l *Looper) Dropped() int64 {
	return l.dropped.Load()
}
