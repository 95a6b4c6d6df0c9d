package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/domain/apps"
	"github.com/MicroPythonOS/shell/internal/domain/looper"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/providers/prefs"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
	"github.com/MicroPythonOS/shell/internal/shared/types"
	"github.com/MicroPythonOS/shell/internal/shared/utils"
)

const serviceVersion = "0.4.0"

// Handlers contains all HTTP handlers. Reads go straight to the
// navigator's snapshot methods; anything that mutates navigation state
// is funnelled through the looper so lifecycle hooks stay on the UI
// thread.
type Handlers struct {
	nav     *activity.Navigator
	loop    *looper.Looper
	apps    *apps.Manager
	prefs   *prefs.Manager
	metrics *monitoring.Metrics
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(
	nav *activity.Navigator,
	loop *looper.Looper,
	appManager *apps.Manager,
	prefManager *prefs.Manager,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		nav:     nav,
		loop:    loop,
		apps:    appManager,
		prefs:   prefManager,
		metrics: metrics,
		started: time.Now(),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "MicroPythonOS Shell",
		"version": serviceVersion,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"navigator": h.nav.Stats(),
		"apps":      h.apps.Stats(),
		"uptime":    time.Since(h.started).String(),
	})
}

// GetStack returns the current back stack, bottom first.
func (h *Handlers) GetStack(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stack": h.nav.Snapshot(),
		"depth": h.nav.Depth(),
		"awake": h.nav.Awake(),
	})
}

// ListActions lists registered actions with their handler counts, plus
// all launchable components.
func (h *Handlers) ListActions(c *gin.Context) {
	reg := h.nav.Registry()

	actions := reg.Actions()
	out := make([]gin.H, 0, len(actions))
	for _, action := range actions {
		out = append(out, gin.H{
			"action":   action,
			"handlers": reg.Handlers(action),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"actions":    out,
		"components": reg.Components(),
	})
}

// Dispatch sends an intent through the navigator on the UI thread.
func (h *Handlers) Dispatch(c *gin.Context) {
	var req types.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateExtras(req.Extras); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := activity.NewIntent()
	if req.Component != "" {
		in.WithComponent(req.Component)
	}
	if req.Action != "" {
		in.WithAction(req.Action)
	}
	in.PutAll(req.Extras)
	for _, flag := range req.Flags {
		in.WithFlag(flag)
	}

	// Validate before queueing
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Noted before dispatch; the dispatch still runs so the navigator
	// records the no-handler outcome.
	unhandled := !in.Explicit() && h.nav.Registry().Handlers(req.Action) == 0

	err := h.loop.Do(c.Request.Context(), func() error {
		return h.nav.StartActivity(in)
	})

	switch {
	case errors.Is(err, activity.ErrInvalidIntent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, activity.ErrNoSuchComponent):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, looper.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case unhandled:
		c.JSON(http.StatusAccepted, gin.H{
			"warning": "no handler for action",
			"action":  req.Action,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"dispatched": true,
			"depth":      h.nav.Depth(),
		})
	}
}

// Back pops the top activity, as the hardware back button would.
func (h *Handlers) Back(c *gin.Context) {
	err := h.loop.Do(c.Request.Context(), func() error {
		h.nav.Back()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"depth": h.nav.Depth()})
}

// Sleep pauses and stops the foreground activity, as the power button
// or idle timeout would.
func (h *Handlers) Sleep(c *gin.Context) {
	err := h.loop.Do(c.Request.Context(), func() error {
		h.nav.Sleep()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"awake": h.nav.Awake()})
}

// Wake restarts and resumes the foreground activity.
func (h *Handlers) Wake(c *gin.Context) {
	err := h.loop.Do(c.Request.Context(), func() error {
		h.nav.Wake()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"awake": h.nav.Awake()})
}

// ListApps lists all discovered apps
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"apps":  h.apps.List(),
		"stats": h.apps.Stats(),
	})
}

// InstallApp installs a package from a local archive or the app store.
func (h *Handlers) InstallApp(c *gin.Context) {
	var req types.InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Path == "" && req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either path or id is required"})
		return
	}
	if req.Path != "" && req.ID != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path and id are mutually exclusive"})
		return
	}

	var (
		app *apps.App
		err error
	)
	if req.Path != "" {
		app, err = h.apps.Install(req.Path, req.SHA256)
	} else {
		app, err = h.apps.InstallFromStore(c.Request.Context(), req.ID)
	}

	switch {
	case errors.Is(err, apps.ErrNotInStore):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apps.ErrNoStore):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, apps.ErrBadPackage), errors.Is(err, apps.ErrChecksumMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"app": app})
	}
}

// UninstallApp removes an installed package
func (h *Handlers) UninstallApp(c *gin.Context) {
	appID := c.Param("id")

	// Validate app ID
	if err := paths.ValidateAppID(appID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.apps.Uninstall(appID)
	switch {
	case errors.Is(err, apps.ErrNotInstalled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apps.ErrBuiltinApp):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"uninstalled": appID})
	}
}

// ListNamespaces lists preference namespaces that exist on disk.
func (h *Handlers) ListNamespaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"namespaces": h.prefs.Namespaces()})
}

// GetNamespace returns every key in one namespace. A namespace that was
// never written to reads as empty.
func (h *Handlers) GetNamespace(c *gin.Context) {
	store, err := h.prefs.Open(c.Param("ns"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"namespace": store.Namespace(),
		"values":    store.All(),
	})
}

// DropNamespace deletes a namespace and its backing file
func (h *Handlers) DropNamespace(c *gin.Context) {
	ns := c.Param("ns")

	if err := h.prefs.Drop(ns); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dropped": ns})
}

// GetPref reads a single preference value
func (h *Handlers) GetPref(c *gin.Context) {
	store, err := h.prefs.Open(c.Param("ns"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	value, ok := store.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"namespace": store.Namespace(),
		"key":       key,
		"value":     value,
	})
}

// PutPref writes a single preference value and persists the namespace.
func (h *Handlers) PutPref(c *gin.Context) {
	var req types.PrefWrite
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}

	store, err := h.prefs.Open(c.Param("ns"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	if err := store.Set(key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"namespace": store.Namespace(),
		"key":       key,
		"value":     req.Value,
	})
}

// DeletePref removes a single preference key
func (h *Handlers) DeletePref(c *gin.Context) {
	store, err := h.prefs.Open(c.Param("ns"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	if err := store.Delete(key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": key})
}

// MetricsJSON returns the aggregated metrics snapshot.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
