package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/domain/apps"
	"github.com/MicroPythonOS/shell/internal/domain/looper"
	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/providers/prefs"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
)

// Shared across the package: the collector registers on the default
// Prometheus registry, which allows each metric name only once per process.
var testMetrics = monitoring.NewMetrics()

type stubActivity struct {
	activity.Base
}

// newTestRouter builds a router over a real navigator, looper, app
// manager, and prefs manager, mirroring the server's route table.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()

	registry := activity.NewRegistry()
	registry.RegisterComponent(activity.Registration{
		Name: "home",
		New:  func() activity.Activity { return &stubActivity{} },
	})
	registry.Register("share", activity.Registration{
		Name: "gallery",
		New:  func() activity.Activity { return &stubActivity{} },
	})

	loop := looper.New(logger)
	go loop.Run(context.Background())
	t.Cleanup(loop.Stop)

	nav := activity.NewNavigator(registry, logger).WithExecutor(loop)

	layout := paths.NewLayout(t.TempDir())
	factory := func(appID, source string) activity.Factory {
		return func() activity.Activity { return &stubActivity{} }
	}
	appMgr := apps.NewManager(layout, registry, factory, logger)
	prefMgr := prefs.NewManager(t.TempDir(), logger)

	h := NewHandlers(nav, loop, appMgr, prefMgr, testMetrics)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/stack", h.GetStack)
	router.GET("/actions", h.ListActions)
	router.POST("/intents/dispatch", h.Dispatch)
	router.POST("/navigator/back", h.Back)
	router.POST("/navigator/sleep", h.Sleep)
	router.POST("/navigator/wake", h.Wake)
	router.GET("/apps", h.ListApps)
	router.POST("/apps/install", h.InstallApp)
	router.DELETE("/apps/:id", h.UninstallApp)
	router.GET("/prefs", h.ListNamespaces)
	router.GET("/prefs/:ns", h.GetNamespace)
	router.DELETE("/prefs/:ns", h.DropNamespace)
	router.GET("/prefs/:ns/:key", h.GetPref)
	router.PUT("/prefs/:ns/:key", h.PutPref)
	router.DELETE("/prefs/:ns/:key", h.DeletePref)
	router.GET("/metrics/json", h.MetricsJSON)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		buf.Write(data)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRootAndHealth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", decode(t, w)["status"])

	w = doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "navigator")
	assert.Contains(t, body, "apps")
}

func TestDispatchExplicit(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{"component": "home"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["dispatched"])
	assert.Equal(t, float64(1), body["depth"])

	w = doJSON(t, router, http.MethodGet, "/stack", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	stack := body["stack"].([]interface{})
	require.Len(t, stack, 1)
	top := stack[0].(map[string]interface{})
	assert.Equal(t, "home", top["component"])
	assert.Equal(t, "resumed", top["state"])
	assert.Equal(t, true, body["awake"])
}

func TestDispatchImplicit(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{
		"action": "share",
		"extras": gin.H{"path": "/photos/1.jpg"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/stack", nil)
	stack := decode(t, w)["stack"].([]interface{})
	require.Len(t, stack, 1)
	assert.Equal(t, "gallery", stack[0].(map[string]interface{})["component"])
}

func TestDispatchRejectsEmptyIntent(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "target, component, or action")
}

func TestDispatchRejectsUnboundedExtras(t *testing.T) {
	router := newTestRouter(t)

	// 25 levels of nesting exceeds the extras depth limit.
	nested := map[string]interface{}{"v": 1}
	for i := 0; i < 25; i++ {
		nested = map[string]interface{}{"n": nested}
	}

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{
		"component": "home",
		"extras":    nested,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "nesting depth")
}

func TestDispatchUnknownComponent(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{"component": "no.such.thing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatchNoHandler(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{"action": "print"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "no handler for action", body["warning"])
	assert.Equal(t, "print", body["action"])
}

func TestNavigatorControls(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/intents/dispatch", gin.H{"component": "home"})

	w := doJSON(t, router, http.MethodPost, "/navigator/sleep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["awake"])

	w = doJSON(t, router, http.MethodPost, "/navigator/wake", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["awake"])

	w = doJSON(t, router, http.MethodPost, "/navigator/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["depth"])
}

func TestListActions(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	actions := body["actions"].([]interface{})
	require.Len(t, actions, 1)
	entry := actions[0].(map[string]interface{})
	assert.Equal(t, "share", entry["action"])
	assert.Equal(t, float64(1), entry["handlers"])

	assert.Contains(t, body["components"], "home")
}

func TestListApps(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/apps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Empty(t, body["apps"])
}

func TestInstallValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/apps/install", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/apps/install", gin.H{"path": "/a.mpk", "id": "com.example.app"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No store is configured on the test manager.
	w = doJSON(t, router, http.MethodPost, "/apps/install", gin.H{"id": "com.example.app"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUninstallErrors(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodDelete, "/apps/com.example.ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/apps/..", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrefsRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	const ns = "com.example.settings"

	w := doJSON(t, router, http.MethodPut, "/prefs/"+ns+"/theme", gin.H{"value": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPut, "/prefs/"+ns+"/sound", gin.H{"value": false})
	require.Equal(t, http.StatusOK, w.Code, "zero values must be writable")

	w = doJSON(t, router, http.MethodGet, "/prefs/"+ns+"/theme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dark", decode(t, w)["value"])

	w = doJSON(t, router, http.MethodGet, "/prefs/"+ns, nil)
	require.Equal(t, http.StatusOK, w.Code)
	values := decode(t, w)["values"].(map[string]interface{})
	assert.Len(t, values, 2)
	assert.Equal(t, false, values["sound"])

	w = doJSON(t, router, http.MethodGet, "/prefs", nil)
	assert.Contains(t, decode(t, w)["namespaces"], ns)

	w = doJSON(t, router, http.MethodDelete, "/prefs/"+ns+"/theme", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/prefs/"+ns+"/theme", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/prefs/"+ns, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/prefs", nil)
	assert.NotContains(t, decode(t, w)["namespaces"], ns)
}

func TestPrefsValidation(t *testing.T) {
	router := newTestRouter(t)

	// Missing value
	w := doJSON(t, router, http.MethodPut, "/prefs/com.example.app/key", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Namespace escaping its directory
	w = doJSON(t, router, http.MethodGet, "/prefs/../key", nil)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestMetricsJSON(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "hook_latency_ms")
}
