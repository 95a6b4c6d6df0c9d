package apps

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Debounce defaults. Package installs touch many paths in a burst; a
// short settle window collapses them into one notification.
const (
	DefaultDebounce = 500 * time.Millisecond
	tickInterval    = 50 * time.Millisecond
)

// Watcher watches package directories and reports debounced change
// batches. It watches top-level entries only: installs and removals
// are directory renames at that level, which is enough to trigger a
// rescan.
type Watcher struct {
	fsw      *fsnotify.Watcher
	logger   *logging.Logger
	debounce time.Duration
	changes  chan struct{}
	stop     chan struct{}
	done     chan struct{}
	started  *atomic.Bool
	stopOnce sync.Once
}

// NewWatcher creates a watcher. A non-positive debounce selects the
// default.
func NewWatcher(logger *logging.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fsw:      fsw,
		logger:   logger.Named("watcher"),
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		started:  atomic.NewBool(false),
	}, nil
}

// Add registers a directory for watching. Missing directories are
// skipped so the watcher can start before the first install.
func (w *Watcher) Add(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		w.logger.Debug("Skipping missing directory", zap.String("dir", dir))
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return nil
}

// Start begins delivering change notifications.
func (w *Watcher) Start() {
	select {
	case <-w.stop:
		return
	default:
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.loop()
}

// Changes returns the notification channel. One value per debounced
// batch; the channel closes when the watcher stops.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Stop closes the watcher and the Changes channel. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.fsw.Close()
		if w.started.Load() {
			<-w.done
		} else {
			close(w.changes)
		}
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.changes)

	var (
		dirty    bool
		deadline time.Time
	)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("Package directory changed",
				zap.String("path", ev.Name),
				zap.String("op", ev.Op.String()))
			dirty = true
			deadline = time.Now().Add(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-ticker.C:
			if dirty && time.Now().After(deadline) {
				dirty = false
				select {
				case w.changes <- struct{}{}:
				default:
					// A notification is already pending; the next
					// rescan covers this batch too.
				}
			}

		case <-w.stop:
			return
		}
	}
}

// relevant filters to operations that can change the installed set.
func relevant(ev fsnotify.Event) bool {
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
