package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MicroPythonOS/shell/internal/infrastructure/config"
)

// One server per test binary: NewServer registers collectors with the
// process-global Prometheus registry, so a second construction panics.
// Everything below drives the same instance through its router.

const homeManifest = `{
  "id": "com.example.home",
  "name": "Home",
  "version": "1.0.0",
  "entry": "main.js",
  "activities": [
    {"component": "home", "actions": ["mpos.action.MAIN"]}
  ]
}`

const homeScript = `
function onCreate() {
    shell.log("home ready");
    shell.setPref("booted", true);
}
function onResume() {
    shell.setContent({ kind: "label", text: "home" });
}
`

func seedBuiltin(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "builtin", "com.example.home")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(homeManifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte(homeScript), 0o644))
}

func TestServerBoot(t *testing.T) {
	root := t.TempDir()
	seedBuiltin(t, root)

	cfg := config.Default()
	cfg.Apps.Root = root
	cfg.Apps.StoreURL = ""
	cfg.Apps.Watch = false
	cfg.RateLimit.Enabled = false
	cfg.Logging.Level = "error"

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	// Run would bind a listener; start the loops ourselves and drive
	// the router in process instead.
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.loop.Run(ctx)
	go srv.hub.Run(ctx)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		return w
	}
	decode := func(w *httptest.ResponseRecorder) map[string]interface{} {
		t.Helper()
		var out map[string]interface{}
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	t.Run("health", func(t *testing.T) {
		w := do(http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "MicroPythonOS Shell", decode(w)["service"])

		w = do(http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decode(w)["status"])
	})

	t.Run("builtin app scanned", func(t *testing.T) {
		w := do(http.MethodGet, "/apps", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "com.example.home")
		assert.Contains(t, w.Body.String(), "builtin")
	})

	t.Run("actions registered", func(t *testing.T) {
		w := do(http.MethodGet, "/actions", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(w)
		actions := body["actions"].(map[string]interface{})
		assert.Equal(t, float64(1), actions["mpos.action.MAIN"])
		assert.Contains(t, body["components"], "home")
	})

	t.Run("dispatch runs the app", func(t *testing.T) {
		w := do(http.MethodPost, "/intents/dispatch", `{"component":"home"}`)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(w)
		assert.Equal(t, true, body["dispatched"])
		assert.Equal(t, float64(1), body["depth"])

		w = do(http.MethodGet, "/stack", "")
		require.Equal(t, http.StatusOK, w.Code)
		body = decode(w)
		stack := body["stack"].([]interface{})
		require.Len(t, stack, 1)
		top := stack[0].(map[string]interface{})
		assert.Equal(t, "home", top["component"])
		assert.Equal(t, "resumed", top["state"])
	})

	t.Run("script wrote through host bindings", func(t *testing.T) {
		// onCreate ran on the looper during dispatch, so the pref is
		// already durable by the time the POST returned.
		w := do(http.MethodGet, "/prefs/com.example.home/booted", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(w)["value"])
	})

	t.Run("navigator controls", func(t *testing.T) {
		w := do(http.MethodPost, "/navigator/sleep", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decode(w)["awake"])

		w = do(http.MethodPost, "/navigator/wake", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(w)["awake"])

		w = do(http.MethodPost, "/navigator/back", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), decode(w)["depth"])
	})

	t.Run("prefs round trip over http", func(t *testing.T) {
		w := do(http.MethodPut, "/prefs/com.example.home/theme", `{"value":"dark"}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = do(http.MethodGet, "/prefs/com.example.home/theme", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "dark", decode(w)["value"])

		w = do(http.MethodDelete, "/prefs/com.example.home/theme", "")
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics exposition", func(t *testing.T) {
		w := do(http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "shell_http_requests_total")

		w = do(http.MethodGet, "/metrics/json", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, decode(w), "uptime_seconds")
	})
}
