package activity

import (
	"github.com/MicroPythonOS/shell/internal/shared/id"
	"github.com/MicroPythonOS/shell/internal/shared/types"
	"go.uber.org/atomic"
)

// Activity is implemented by everything the navigator can launch.
//
// Implementations embed Base, which supplies no-op hooks and the
// navigation API; the unexported accessor makes the embedding mandatory
// so the navigator always reaches its bookkeeping regardless of which
// hooks an activity overrides.
type Activity interface {
	// OnCreate runs exactly once, before the activity becomes visible.
	OnCreate()

	// OnStart runs when the activity becomes visible.
	OnStart(*Surface)

	// OnResume runs when the activity takes the foreground. Overriders
	// must call the embedded Base hook first.
	OnResume(*Surface)

	// OnPause runs when the activity loses the foreground. Overriders
	// must call the embedded Base hook first.
	OnPause(*Surface)

	// OnStop runs when the activity is no longer visible.
	OnStop(*Surface)

	// OnDestroy runs exactly once, before the instance is discarded.
	OnDestroy(*Surface)

	base() *Base
}

// Base carries the state the navigator binds to every launched activity
// and the navigation API activity authors call. The zero value is ready
// to embed.
type Base struct {
	nav       *Navigator
	component string
	intent    *Intent
	surface   *Surface
	launchID  id.LaunchID
	actID     id.ActivityID

	// Fields below are read from observer goroutines while the UI
	// thread drives hooks, hence atomics.
	state      atomic.String
	foreground atomic.Bool
	destroyed  atomic.Bool

	noHistory   bool
	noAnimation bool
}

func (b *Base) base() *Base { return b }

// bind attaches launch state. Called by the navigator before OnCreate.
func (b *Base) bind(nav *Navigator, component string, in *Intent, surface *Surface, lid id.LaunchID) {
	b.nav = nav
	b.component = component
	b.intent = in
	b.surface = surface
	b.launchID = lid
	b.actID = id.NewActivityID()
	b.noHistory = in.HasFlag(FlagNoHistory)
	b.noAnimation = in.HasFlag(FlagNoAnimation)
}

// rebind swaps the bound intent when an existing instance is re-targeted.
func (b *Base) rebind(in *Intent) {
	b.intent = in
}

// OnCreate does nothing by default.
func (b *Base) OnCreate() {}

// OnStart does nothing by default.
func (b *Base) OnStart(*Surface) {}

// OnResume marks the activity as foreground. Overriders must invoke
// this before their own logic.
func (b *Base) OnResume(*Surface) {
	b.foreground.Store(true)
}

// OnPause clears the foreground mark. Overriders must invoke this
// before their own logic.
func (b *Base) OnPause(*Surface) {
	b.foreground.Store(false)
}

// OnStop does nothing by default.
func (b *Base) OnStop(*Surface) {}

// OnDestroy does nothing by default.
func (b *Base) OnDestroy(*Surface) {}

// Intent returns the intent bound to this activity.
func (b *Base) Intent() *Intent {
	return b.intent
}

// Surface returns the activity's surface, nil before launch.
func (b *Base) Surface() *Surface {
	return b.surface
}

// Component returns the component name this instance was launched as.
func (b *Base) Component() string {
	return b.component
}

// LaunchID returns the identifier of the launch that created this instance.
func (b *Base) LaunchID() id.LaunchID {
	return b.launchID
}

// ActivityID returns the instance identifier.
func (b *Base) ActivityID() id.ActivityID {
	return b.actID
}

// State returns the current lifecycle state.
func (b *Base) State() types.State {
	return types.State(b.state.Load())
}

func (b *Base) setState(s types.State) {
	b.state.Store(string(s))
}

// HasForeground reports whether the activity currently holds the screen.
func (b *Base) HasForeground() bool {
	return b.foreground.Load() && !b.destroyed.Load()
}

// Destroyed reports whether OnDestroy has completed.
func (b *Base) Destroyed() bool {
	return b.destroyed.Load()
}

// StartActivity dispatches an intent from this activity.
func (b *Base) StartActivity(in *Intent) error {
	if b.nav == nil {
		return &NavigationError{Op: "start", Component: b.component, Err: ErrDetached}
	}
	return b.nav.startFrom(b, in, nil)
}

// StartActivityForResult dispatches an intent and registers a callback
// for the launched activity's result.
func (b *Base) StartActivityForResult(in *Intent, fn ResultFunc) error {
	if b.nav == nil {
		return &NavigationError{Op: "start", Component: b.component, Err: ErrDetached}
	}
	return b.nav.startFrom(b, in, fn)
}

// Finish pops this activity off the back stack, delivering the given
// code and payload to a pending waiter. Finishing an activity that is
// not on top is a logged no-op.
func (b *Base) Finish(code int, data map[string]interface{}) {
	if b.nav == nil {
		return
	}
	b.nav.finishFrom(b, &Result{Code: code, Data: data})
}

// FinishCanceled finishes with ResultCanceled and no payload.
func (b *Base) FinishCanceled() {
	b.Finish(ResultCanceled, nil)
}

// SetContentView installs the visual root on the activity's surface.
func (b *Base) SetContentView(root interface{}) {
	if b.destroyed.Load() || b.surface == nil {
		return
	}
	b.surface.SetContent(root)
}

// UpdateUI schedules fn on the UI thread if the activity still holds
// the foreground. Stale updates from backgrounded or destroyed
// activities are dropped silently; liveness is checked both at
// scheduling time and again when the update runs.
func (b *Base) UpdateUI(fn func()) {
	if b.nav == nil || fn == nil {
		return
	}
	if !b.HasForeground() {
		b.nav.noteStaleUpdate(b)
		return
	}
	b.nav.exec.Post(func() {
		if !b.HasForeground() {
			b.nav.noteStaleUpdate(b)
			return
		}
		fn()
	})
}
