package script

import (
	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"go.uber.org/zap"
)

// bindHost installs the shell object scripts talk to. It is a plain
// map of closures; goja proxies the calls.
func (a *ScriptActivity) bindHost() {
	a.runtime.Bind("shell", map[string]interface{}{
		"appId": a.appID,

		"log": func(msg string) {
			a.logger.Info("app log", zap.String("app_id", a.appID), zap.String("msg", msg))
		},

		"getExtra": func(key string) interface{} {
			v, _ := a.Intent().GetExtra(key)
			return v
		},

		"setContent": func(root interface{}) {
			a.SetContentView(root)
		},

		"finish": func(code int, data map[string]interface{}) {
			a.Finish(code, data)
		},

		"finishCanceled": func() {
			a.FinishCanceled()
		},

		"startActivity": func(spec map[string]interface{}) {
			a.launchFromSpec(spec)
		},

		"getPref": func(key string, fallback interface{}) interface{} {
			if a.store == nil {
				return fallback
			}
			if v, ok := a.store.Get(key); ok {
				return v
			}
			return fallback
		},

		"setPref": func(key string, value interface{}) {
			if a.store == nil {
				return
			}
			if err := a.store.Set(key, value); err != nil {
				a.logger.Warn("script pref write failed",
					zap.String("app_id", a.appID),
					zap.String("key", key),
					zap.Error(err))
			}
		},
	})
}

// launchFromSpec turns a script-side object into an intent dispatch.
// Launch failures are logged; scripts cannot crash the navigator.
func (a *ScriptActivity) launchFromSpec(spec map[string]interface{}) {
	in := activity.NewIntent()
	if s, ok := spec["action"].(string); ok {
		in.WithAction(s)
	}
	if s, ok := spec["component"].(string); ok {
		in.WithComponent(s)
	}
	if extras, ok := spec["extras"].(map[string]interface{}); ok {
		in.PutAll(extras)
	}
	if flags, ok := spec["flags"].([]interface{}); ok {
		for _, fl := range flags {
			if s, ok := fl.(string); ok {
				in.WithFlag(s)
			}
		}
	}

	if err := a.StartActivity(in); err != nil {
		a.logger.Warn("script launch rejected",
			zap.String("app_id", a.appID), zap.Error(err))
	}
}
