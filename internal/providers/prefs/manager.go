package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
	"go.uber.org/zap"
)

// Manager hands out preference stores keyed by namespace. Apps use
// their app ID as namespace; the shell itself uses "system". Stores are
// created lazily and cached for the life of the process.
type Manager struct {
	dir    string
	logger *logging.Logger

	mu     sync.Mutex
	stores map[string]*Store // Protected by mu
}

// NewManager creates a manager persisting under dir.
func NewManager(dir string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		dir:    dir,
		logger: logger.Named("prefs"),
		stores: make(map[string]*Store),
	}
}

// Open returns the store for a namespace, creating it on first use.
func (m *Manager) Open(namespace string) (*Store, error) {
	if err := paths.ValidateAppID(namespace); err != nil {
		return nil, fmt.Errorf("invalid prefs namespace %q: %w", namespace, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[namespace]; ok {
		return s, nil
	}
	s := newStore(namespace, filepath.Join(m.dir, namespace+".json"), m.logger)
	m.stores[namespace] = s
	return s, nil
}

// Namespaces lists every namespace with a backing file or a live store,
// sorted.
func (m *Manager) Namespaces() []string {
	seen := make(map[string]bool)

	entries, err := os.ReadDir(m.dir)
	if err == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			seen[strings.TrimSuffix(name, ".json")] = true
		}
	}

	m.mu.Lock()
	for ns := range m.stores {
		seen[ns] = true
	}
	m.mu.Unlock()

	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Drop removes a namespace: its cached store and its backing file.
// Used when an app is uninstalled.
func (m *Manager) Drop(namespace string) error {
	if err := paths.ValidateAppID(namespace); err != nil {
		return fmt.Errorf("invalid prefs namespace %q: %w", namespace, err)
	}

	m.mu.Lock()
	delete(m.stores, namespace)
	m.mu.Unlock()

	path := filepath.Join(m.dir, namespace+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove prefs %q: %w", namespace, err)
	}
	m.logger.Info("prefs namespace dropped", zap.String("namespace", namespace))
	return nil
}
