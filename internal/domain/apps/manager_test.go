package apps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubActivity stands in for the script runtime in manager tests.
type stubActivity struct {
	activity.Base
	appID  string
	source string
}

type managerFixture struct {
	layout   paths.Layout
	registry *activity.Registry
	mgr      *Manager

	mu      sync.Mutex
	sources map[string]string // entry source by app ID
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	layout := testLayout(t)
	f := &managerFixture{
		layout:   layout,
		registry: activity.NewRegistry(),
		sources:  make(map[string]string),
	}
	factory := func(appID, source string) activity.Factory {
		f.mu.Lock()
		f.sources[appID] = source
		f.mu.Unlock()
		return func() activity.Activity {
			return &stubActivity{appID: appID, source: source}
		}
	}
	f.mgr = NewManager(layout, f.registry, factory, logging.NewNop())
	return f
}

func (f *managerFixture) source(appID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sources[appID]
}

// writeApp drops a package directory under parent, ready for a scan.
func writeApp(t *testing.T, parent, id, version string, actions []string) string {
	t.Helper()
	manifest := fmt.Sprintf(`{"id":%q,"name":"App","version":%q,"activities":[{"component":%q,"actions":%s}]}`,
		id, version, id, jsonList(actions))
	dir := filepath.Join(parent, id)
	writePackageDir(t, dir, manifest, map[string][]byte{"main.js": []byte("// " + id)})
	return dir
}

func jsonList(items []string) string {
	out := "["
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", s)
	}
	return out + "]"
}

func TestScanRegistersActivities(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Builtin(), "com.example.launcher", "1.0", []string{"main.launcher"})
	writeApp(t, f.layout.Apps(), "com.example.files", "1.0", []string{"main.files", "view.file"})

	require.NoError(t, f.mgr.Scan())

	_, ok := f.registry.Component("com.example.launcher")
	assert.True(t, ok)
	_, ok = f.registry.Component("com.example.files")
	assert.True(t, ok)
	assert.Len(t, f.registry.Resolve("view.file"), 1)

	launcher, ok := f.mgr.Get("com.example.launcher")
	require.True(t, ok)
	assert.Equal(t, SourceBuiltin, launcher.Source)

	assert.Equal(t, "// com.example.launcher", f.source("com.example.launcher"))
	assert.Len(t, f.mgr.List(), 2)
}

func TestScanIsIdempotent(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Apps(), "com.example.files", "1.0", []string{"main.files"})

	require.NoError(t, f.mgr.Scan())
	require.NoError(t, f.mgr.Scan())

	assert.Equal(t, 1, f.registry.Handlers("main.files"))
	assert.Len(t, f.mgr.List(), 1)
}

func TestInstalledShadowsBuiltin(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Builtin(), "com.example.files", "1.0", []string{"main.files"})
	writeApp(t, f.layout.Apps(), "com.example.files", "2.0", []string{"main.files"})

	require.NoError(t, f.mgr.Scan())

	app, ok := f.mgr.Get("com.example.files")
	require.True(t, ok)
	assert.Equal(t, SourceInstalled, app.Source)
	assert.Equal(t, "2.0", app.Manifest.Version)
	assert.Equal(t, 1, f.registry.Handlers("main.files"))
}

func TestScanDropsRemovedPackages(t *testing.T) {
	f := newManagerFixture(t)
	dir := writeApp(t, f.layout.Apps(), "com.example.files", "1.0", []string{"main.files"})

	require.NoError(t, f.mgr.Scan())
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, f.mgr.Scan())

	_, ok := f.mgr.Get("com.example.files")
	assert.False(t, ok)
	_, ok = f.registry.Component("com.example.files")
	assert.False(t, ok)
	assert.Empty(t, f.registry.Resolve("main.files"))
}

func TestScanFollowsManifestChanges(t *testing.T) {
	f := newManagerFixture(t)
	dir := writeApp(t, f.layout.Apps(), "com.example.files", "1.0", []string{"view.file"})
	require.NoError(t, f.mgr.Scan())
	require.Len(t, f.registry.Resolve("view.file"), 1)

	// The action list changes; the old binding must not linger.
	writeApp(t, filepath.Dir(dir), "com.example.files", "1.1", []string{"edit.file"})
	require.NoError(t, f.mgr.Scan())

	assert.Empty(t, f.registry.Resolve("view.file"))
	assert.Len(t, f.registry.Resolve("edit.file"), 1)
}

func TestScanSkipsBrokenPackages(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Apps(), "com.example.good", "1.0", []string{"main.good"})

	// Broken manifest in a sibling package.
	bad := filepath.Join(f.layout.Apps(), "com.example.bad")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "manifest.json"), []byte("{nope"), 0o644))

	require.NoError(t, f.mgr.Scan())

	_, ok := f.mgr.Get("com.example.good")
	assert.True(t, ok)
	_, ok = f.mgr.Get("com.example.bad")
	assert.False(t, ok)
}

func TestManagerInstallRegistersPackage(t *testing.T) {
	f := newManagerFixture(t)
	archive, sum := buildArchive(t, calcManifest, map[string][]byte{"main.js": []byte("// calc")})

	app, err := f.mgr.Install(archive, sum)
	require.NoError(t, err)
	assert.Equal(t, "com.example.calc", app.ID())

	_, ok := f.registry.Component("com.example.calc")
	assert.True(t, ok)
	assert.Len(t, f.registry.Resolve("main.calc"), 1)

	got, ok := f.mgr.Get("com.example.calc")
	require.True(t, ok)
	assert.Equal(t, SourceInstalled, got.Source)
}

type dropRecorder struct {
	mu    sync.Mutex
	drops []string
}

func (d *dropRecorder) Drop(namespace string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drops = append(d.drops, namespace)
	return nil
}

func TestUninstallCleansUp(t *testing.T) {
	f := newManagerFixture(t)
	drops := &dropRecorder{}
	f.mgr.WithPrefs(drops)

	archive, sum := buildArchive(t, calcManifest, map[string][]byte{"main.js": []byte("// calc")})
	app, err := f.mgr.Install(archive, sum)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Uninstall("com.example.calc"))

	_, ok := f.mgr.Get("com.example.calc")
	assert.False(t, ok)
	_, ok = f.registry.Component("com.example.calc")
	assert.False(t, ok)
	assert.NoDirExists(t, app.Dir)
	assert.Equal(t, []string{"com.example.calc"}, drops.drops)
}

func TestUninstallUnknownPackage(t *testing.T) {
	f := newManagerFixture(t)
	assert.ErrorIs(t, f.mgr.Uninstall("com.example.ghost"), ErrNotInstalled)
}

func TestUninstallBuiltinRefused(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Builtin(), "com.example.launcher", "1.0", nil)
	require.NoError(t, f.mgr.Scan())

	assert.ErrorIs(t, f.mgr.Uninstall("com.example.launcher"), ErrBuiltinApp)

	_, ok := f.mgr.Get("com.example.launcher")
	assert.True(t, ok)
}

func TestManagerStats(t *testing.T) {
	f := newManagerFixture(t)
	writeApp(t, f.layout.Builtin(), "com.example.launcher", "1.0", []string{"main.launcher"})
	writeApp(t, f.layout.Apps(), "com.example.files", "1.0", []string{"main.files", "view.file"})
	require.NoError(t, f.mgr.Scan())

	stats := f.mgr.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Builtin)
	assert.Equal(t, 1, stats.Installed)
	assert.Equal(t, 2, stats.Components)
	assert.Equal(t, 3, stats.Actions)
}

func TestInstallFromStore(t *testing.T) {
	f := newManagerFixture(t)
	fs := newFakeStore(t)
	fs.publish(t, calcManifest, map[string][]byte{"main.js": []byte("// from store")})
	f.mgr.WithStore(NewStore(fs.srv.URL, logging.NewNop()))

	app, err := f.mgr.InstallFromStore(context.Background(), "com.example.calc")
	require.NoError(t, err)
	assert.Equal(t, "com.example.calc", app.ID())

	_, ok := f.registry.Component("com.example.calc")
	assert.True(t, ok)
	assert.Equal(t, "// from store", f.source("com.example.calc"))

	// The downloaded archive must not linger in tmp.
	entries, err := os.ReadDir(f.layout.Tmp())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallFromStoreUnknownPackage(t *testing.T) {
	f := newManagerFixture(t)
	fs := newFakeStore(t)
	f.mgr.WithStore(NewStore(fs.srv.URL, logging.NewNop()))

	_, err := f.mgr.InstallFromStore(context.Background(), "com.example.ghost")
	assert.ErrorIs(t, err, ErrNotInStore)
}

func TestInstallFromStoreWithoutStore(t *testing.T) {
	f := newManagerFixture(t)
	_, err := f.mgr.InstallFromStore(context.Background(), "com.example.calc")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestWatchTriggersRescan(t *testing.T) {
	f := newManagerFixture(t)
	require.NoError(t, f.mgr.Scan())

	stop, err := f.mgr.Watch(50 * time.Millisecond)
	require.NoError(t, err)
	defer stop()

	// Stage the package elsewhere and move it in with one rename,
	// the same way the installer lands packages.
	staging := filepath.Join(t.TempDir(), "com.example.new")
	writePackageDir(t, staging, `{"id":"com.example.new","name":"New","version":"1.0"}`,
		map[string][]byte{"main.js": []byte("// new")})
	require.NoError(t, os.Rename(staging, filepath.Join(f.layout.Apps(), "com.example.new")))

	assert.Eventually(t, func() bool {
		_, ok := f.mgr.Get("com.example.new")
		return ok
	}, 3*time.Second, 25*time.Millisecond, "rescan should pick up the new package")

	require.NoError(t, os.RemoveAll(filepath.Join(f.layout.Apps(), "com.example.new")))

	assert.Eventually(t, func() bool {
		_, ok := f.mgr.Get("com.example.new")
		return !ok
	}, 3*time.Second, 25*time.Millisecond, "rescan should drop the removed package")
}
