package script

import (
	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/providers/prefs"
	"go.uber.org/zap"
)

// Hook function names a script may define at top level.
const (
	hookCreate  = "onCreate"
	hookStart   = "onStart"
	hookResume  = "onResume"
	hookPause   = "onPause"
	hookStop    = "onStop"
	hookDestroy = "onDestroy"
)

// ScriptActivity runs an installed app's script through the activity
// lifecycle. The script's source executes once in OnCreate, after the
// shell host object is bound; lifecycle hooks then map onto same-named
// global functions the script chose to define.
//
// A script that fails to evaluate finishes itself canceled instead of
// wedging the back stack.
type ScriptActivity struct {
	activity.Base

	appID   string
	source  string
	runtime *Runtime
	prefsMg *prefs.Manager
	logger  *logging.Logger

	store *prefs.Store
	ready bool
}

// NewFactory returns an activity factory executing the given source.
// Each launch gets a fresh runtime.
func NewFactory(appID, source string, pm *prefs.Manager, cfg Config, logger *logging.Logger) activity.Factory {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("script")
	return func() activity.Activity {
		return &ScriptActivity{
			appID:   appID,
			source:  source,
			runtime: New(cfg, logger),
			prefsMg: pm,
			logger:  logger,
		}
	}
}

// AppID returns the app this activity executes.
func (a *ScriptActivity) AppID() string {
	return a.appID
}

// Runtime exposes the backing runtime for introspection (console dump).
func (a *ScriptActivity) Runtime() *Runtime {
	return a.runtime
}

func (a *ScriptActivity) OnCreate() {
	if a.prefsMg != nil {
		store, err := a.prefsMg.Open(a.appID)
		if err != nil {
			a.logger.Warn("prefs unavailable for app",
				zap.String("app_id", a.appID), zap.Error(err))
		} else {
			a.store = store
		}
	}

	a.bindHost()

	if _, err := a.runtime.Execute(a.source); err != nil {
		a.logger.Error("app script failed to evaluate",
			zap.String("app_id", a.appID), zap.Error(err))
		a.FinishCanceled()
		return
	}
	a.ready = true
	a.callHook(hookCreate)
}

func (a *ScriptActivity) OnStart(s *activity.Surface) {
	a.callHook(hookStart)
}

func (a *ScriptActivity) OnResume(s *activity.Surface) {
	a.Base.OnResume(s)
	a.callHook(hookResume)
}

func (a *ScriptActivity) OnPause(s *activity.Surface) {
	a.Base.OnPause(s)
	a.callHook(hookPause)
}

func (a *ScriptActivity) OnStop(s *activity.Surface) {
	a.callHook(hookStop)
}

func (a *ScriptActivity) OnDestroy(s *activity.Surface) {
	a.callHook(hookDestroy)
	a.runtime.Close()
}

// callHook invokes one script lifecycle function. A missing function is
// fine; a throwing one is logged and contained.
func (a *ScriptActivity) callHook(name string) {
	if !a.ready {
		return
	}
	if _, found, err := a.runtime.Call(name); found && err != nil {
		a.logger.Warn("script hook failed",
			zap.String("app_id", a.appID),
			zap.String("hook", name),
			zap.Error(err))
	}
}
