package apps

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := NewWatcher(logging.NewNop(), 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Add(dir))
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherEmitsDebouncedBatch(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	// A burst of writes should collapse into one notification.
	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, "file"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	select {
	case _, ok := <-w.Changes():
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification arrived")
	}

	select {
	case <-w.Changes():
		t.Fatal("burst produced a second notification")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSeparatedEventsSeparateBatches(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "one"), []byte("x"), 0o644))
	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("first notification missing")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "two"), []byte("x"), 0o644))
	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("second notification missing")
	}
}

func TestWatcherStopClosesChannel(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	w.Stop()

	select {
	case _, ok := <-w.Changes():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Changes channel not closed after Stop")
	}

	// Idempotent.
	w.Stop()
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w, err := NewWatcher(logging.NewNop(), 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}

	_, ok := <-w.Changes()
	assert.False(t, ok)
}

func TestWatcherAddMissingDirectory(t *testing.T) {
	w, err := NewWatcher(logging.NewNop(), 0)
	require.NoError(t, err)
	defer w.Stop()

	assert.NoError(t, w.Add(filepath.Join(t.TempDir(), "not-yet")))
}
