package apps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
	"go.uber.org/zap"
)

// Manager errors.
var (
	ErrNotInstalled = errors.New("package not installed")
	ErrNotInStore   = errors.New("package not in store catalog")
	ErrNoStore      = errors.New("no store configured")
)

// FactoryFunc builds an activity factory from a package's entry
// source. Wired to the script runtime at startup.
type FactoryFunc func(appID, source string) activity.Factory

// PrefsDropper removes a package's preference namespace on uninstall.
type PrefsDropper interface {
	Drop(namespace string) error
}

// Manager owns the installed-package table and keeps the activity
// registry in sync with what is on disk. Builtin packages are scanned
// first; an installed package with the same ID shadows the builtin.
type Manager struct {
	layout    paths.Layout
	registry  *activity.Registry
	factory   FactoryFunc
	prefs     PrefsDropper
	scanner   *Scanner
	installer *Installer
	store     *Store
	logger    *logging.Logger
	metrics   *monitoring.Metrics

	scanMu sync.Mutex // Serializes Scan against install/uninstall

	mu      sync.RWMutex
	apps    map[string]*App // Protected by mu
	watcher *Watcher        // Protected by mu
}

// NewManager creates a package manager over the standard layout.
func NewManager(layout paths.Layout, registry *activity.Registry, factory FactoryFunc, logger *logging.Logger) *Manager {
	log := logger.Named("apps")
	return &Manager{
		layout:    layout,
		registry:  registry,
		factory:   factory,
		scanner:   NewScanner(log),
		installer: NewInstaller(layout, log),
		logger:    log,
		apps:      make(map[string]*App),
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithStore attaches an app store client.
func (m *Manager) WithStore(store *Store) *Manager {
	m.store = store
	return m
}

// WithPrefs attaches the preference service consulted on uninstall.
func (m *Manager) WithPrefs(prefs PrefsDropper) *Manager {
	m.prefs = prefs
	return m
}

// Scan discovers builtin and installed packages and registers their
// activities. Safe to call repeatedly; packages that disappeared from
// disk are deregistered.
func (m *Manager) Scan() error {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	builtin := m.scanner.Scan(m.layout.Builtin(), SourceBuiltin)
	installed := m.scanner.Scan(m.layout.Apps(), SourceInstalled)

	next := make(map[string]*App, len(builtin)+len(installed))
	for _, app := range builtin {
		next[app.ID()] = app
	}
	for _, app := range installed {
		if _, shadowed := next[app.ID()]; shadowed {
			m.logger.Debug("Installed package shadows builtin", zap.String("app_id", app.ID()))
		}
		next[app.ID()] = app
	}

	m.mu.Lock()
	prev := m.apps
	m.apps = next
	m.mu.Unlock()

	for id, old := range prev {
		if _, ok := next[id]; ok {
			continue
		}
		for _, decl := range old.Manifest.Activities {
			m.registry.Unregister(decl.Component)
		}
		m.logger.Info("Package removed", zap.String("app_id", id))
	}

	for _, app := range next {
		if err := m.register(app); err != nil {
			m.logger.Warn("Failed to register package",
				zap.String("app_id", app.ID()),
				zap.Error(err))
		}
	}

	if m.metrics != nil {
		m.metrics.SetAppsInstalled(len(next))
	}
	m.logger.Info("Package scan complete",
		zap.Int("builtin", len(builtin)),
		zap.Int("installed", len(installed)))
	return nil
}

// register loads each declared activity's entry script and publishes
// it in the registry. Deregistering first makes re-registration exact
// even when a manifest's action list shrank.
func (m *Manager) register(app *App) error {
	for _, decl := range app.Manifest.Activities {
		source, err := os.ReadFile(filepath.Join(app.Dir, decl.Entry))
		if err != nil {
			return fmt.Errorf("failed to read entry for %s: %w", decl.Component, err)
		}
		reg := activity.Registration{
			Name: decl.Component,
			New:  m.factory(app.ID(), string(source)),
		}

		m.registry.Unregister(decl.Component)
		if len(decl.Actions) == 0 {
			m.registry.RegisterComponent(reg)
			continue
		}
		for _, action := range decl.Actions {
			m.registry.Register(action, reg)
		}
	}
	return nil
}

// Install unpacks a local .mpk archive, registers its activities, and
// records it in the installed table. A non-empty checksum must match
// the archive's SHA-256.
func (m *Manager) Install(archive, checksum string) (*App, error) {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	app, err := m.installer.Install(archive, checksum)
	if err != nil {
		return nil, err
	}
	if err := m.register(app); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.apps[app.ID()] = app
	count := len(m.apps)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncInstalls()
		m.metrics.SetAppsInstalled(count)
	}
	m.logger.Info("Package installed",
		zap.String("app_id", app.ID()),
		zap.String("version", app.Manifest.Version))

	cp := *app
	return &cp, nil
}

// InstallFromStore resolves a package in the store catalog, downloads
// its archive into the tmp directory, and installs it.
func (m *Manager) InstallFromStore(ctx context.Context, appID string) (*App, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}

	idx, err := m.store.Index(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := idx.Find(appID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInStore, appID)
	}

	archive, err := m.store.Download(ctx, entry, m.layout.Tmp())
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive)

	return m.Install(archive, entry.SHA256)
}

// Uninstall removes an installed package: its files, registrations,
// and preference namespace. Builtin packages are refused.
func (m *Manager) Uninstall(appID string) error {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	m.mu.RLock()
	app, ok := m.apps[appID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInstalled, appID)
	}
	if app.Source == SourceBuiltin {
		return ErrBuiltinApp
	}

	for _, decl := range app.Manifest.Activities {
		m.registry.Unregister(decl.Component)
	}
	if err := m.installer.Uninstall(app); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.apps, appID)
	count := len(m.apps)
	m.mu.Unlock()

	if m.prefs != nil {
		if err := m.prefs.Drop(appID); err != nil {
			m.logger.Warn("Failed to drop preferences",
				zap.String("app_id", appID),
				zap.Error(err))
		}
	}
	if m.metrics != nil {
		m.metrics.SetAppsInstalled(count)
	}
	m.logger.Info("Package uninstalled", zap.String("app_id", appID))
	return nil
}

// Get returns an installed package by ID.
func (m *Manager) Get(appID string) (*App, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.apps[appID]
	if !ok {
		return nil, false
	}
	// Return a copy to prevent external modifications
	cp := *app
	return &cp, true
}

// List returns all installed packages sorted by ID.
func (m *Manager) List() []*App {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*App, 0, len(m.apps))
	for _, app := range m.apps {
		cp := *app
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Stats summarizes the installed table and the registry surface it
// feeds.
type Stats struct {
	Total      int `json:"total"`
	Builtin    int `json:"builtin"`
	Installed  int `json:"installed"`
	Components int `json:"components"`
	Actions    int `json:"actions"`
}

// Stats returns manager statistics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	var builtin, installed int
	for _, app := range m.apps {
		if app.Source == SourceBuiltin {
			builtin++
		} else {
			installed++
		}
	}
	m.mu.RUnlock()

	return Stats{
		Total:      builtin + installed,
		Builtin:    builtin,
		Installed:  installed,
		Components: len(m.registry.Components()),
		Actions:    len(m.registry.Actions()),
	}
}

// Watch starts the filesystem watcher; every debounced change batch
// triggers a rescan. Returns a stop function.
func (m *Manager) Watch(debounce time.Duration) (func(), error) {
	w, err := NewWatcher(m.logger, debounce)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{m.layout.Builtin(), m.layout.Apps()} {
		if err := w.Add(dir); err != nil {
			m.logger.Warn("Cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	w.Start()

	go func() {
		for range w.Changes() {
			if err := m.Scan(); err != nil {
				m.logger.Warn("Rescan failed", zap.Error(err))
			}
		}
	}()

	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()
	return w.Stop, nil
}
