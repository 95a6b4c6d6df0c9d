package activity

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/shared/id"
	"github.com/MicroPythonOS/shell/internal/shared/types"
	"go.uber.org/zap"
)

// Executor schedules work onto the UI thread.
type Executor interface {
	Post(fn func())
}

// directExecutor runs work inline. Default until a looper is attached.
type directExecutor struct{}

func (directExecutor) Post(fn func()) { fn() }

// Listener observes completed lifecycle transitions. Listeners run on
// the UI thread and must not block.
type Listener func(types.Transition)

// Navigator drives the activity back stack.
//
// All navigation runs on a single logical UI thread. Navigation calls
// made from inside a lifecycle hook are queued and executed after the
// in-flight transition completes; the outermost call drains the queue
// before returning. Errors from queued operations are logged, not
// returned.
type Navigator struct {
	registry *Registry
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	exec     Executor

	surfaceW int
	surfaceH int

	mu      sync.RWMutex
	stack   backStack                     // Protected by mu
	results map[id.LaunchID]pendingResult // Protected by mu
	awake   bool                          // Protected by mu

	dispatching bool           // Protected by mu
	queue       []func() error // Protected by mu

	listenerMu sync.RWMutex
	listeners  []Listener // Protected by listenerMu
}

// hookStates maps each lifecycle hook to the state it establishes.
var hookStates = map[types.Hook]types.State{
	types.HookCreate:  types.StateCreated,
	types.HookStart:   types.StateStarted,
	types.HookResume:  types.StateResumed,
	types.HookPause:   types.StatePaused,
	types.HookStop:    types.StateStopped,
	types.HookDestroy: types.StateDestroyed,
}

// NewNavigator creates a navigator resolving against the given registry.
// The built-in chooser component registers itself here.
func NewNavigator(registry *Registry, logger *logging.Logger) *Navigator {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	n := &Navigator{
		registry: registry,
		logger:   logger,
		exec:     directExecutor{},
		surfaceW: 320,
		surfaceH: 240,
		results:  make(map[id.LaunchID]pendingResult),
		awake:    true,
	}

	registry.RegisterComponent(Registration{
		Name: ChooserComponent,
		New:  func() Activity { return &Chooser{} },
	})

	return n
}

// WithMetrics adds metrics tracking to the navigator.
func (n *Navigator) WithMetrics(m *monitoring.Metrics) *Navigator {
	n.metrics = m
	return n
}

// WithExecutor attaches the UI thread executor used by UpdateUI.
func (n *Navigator) WithExecutor(e Executor) *Navigator {
	if e != nil {
		n.exec = e
	}
	return n
}

// WithSurfaceSize sets the dimensions of surfaces handed to activities.
func (n *Navigator) WithSurfaceSize(width, height int) *Navigator {
	if width > 0 && height > 0 {
		n.surfaceW = width
		n.surfaceH = height
	}
	return n
}

// AddListener registers an observer for lifecycle transitions.
func (n *Navigator) AddListener(l Listener) {
	if l == nil {
		return
	}
	n.listenerMu.Lock()
	defer n.listenerMu.Unlock()
	n.listeners = append(n.listeners, l)
}

// StartActivity dispatches an intent from outside any activity.
func (n *Navigator) StartActivity(in *Intent) error {
	return n.startFrom(nil, in, nil)
}

// StartActivityForResult dispatches an intent and registers fn for the
// launched activity's result.
func (n *Navigator) StartActivityForResult(in *Intent, fn ResultFunc) error {
	return n.startFrom(nil, in, fn)
}

// startFrom validates synchronously so structural errors reach the
// caller even when the launch itself is queued behind an in-flight
// transition.
func (n *Navigator) startFrom(from *Base, in *Intent, fn ResultFunc) error {
	if err := in.Validate(); err != nil {
		if n.metrics != nil {
			n.metrics.RecordDispatch(dispatchKind(in), monitoring.OutcomeError)
		}
		return err
	}
	return n.run(func() error { return n.launch(from, in, fn) })
}

// run executes op with non-reentrant semantics: when another operation
// is in flight, op is queued and drained by the outermost call.
func (n *Navigator) run(op func() error) error {
	n.mu.Lock()
	if n.dispatching {
		n.queue = append(n.queue, op)
		n.mu.Unlock()
		return nil
	}
	n.dispatching = true
	n.mu.Unlock()

	err := op()

	for {
		n.mu.Lock()
		if len(n.queue) == 0 {
			n.dispatching = false
			n.mu.Unlock()
			return err
		}
		next := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()

		if qerr := next(); qerr != nil {
			n.logger.Warn("queued navigation failed", zap.Error(qerr))
		}
	}
}

// launch resolves an intent and drives the launch choreography.
// Runs on the UI thread.
func (n *Navigator) launch(from *Base, in *Intent, fn ResultFunc) error {
	kind := dispatchKind(in)

	// A launch implies user interaction: wake first so the incoming
	// activity can take the foreground.
	n.mu.Lock()
	woke := !n.awake
	n.awake = true
	n.mu.Unlock()
	if woke {
		n.logger.Info("waking for launch")
	}

	var a Activity
	var component string

	switch {
	case in.Target != nil:
		a = in.Target()
		if a == nil {
			if n.metrics != nil {
				n.metrics.RecordDispatch(kind, monitoring.OutcomeError)
			}
			return &NavigationError{Op: "start", Component: in.Component, Err: fmt.Errorf("factory returned nil")}
		}
		component = in.Component
		if component == "" {
			component = typeName(a)
		}

	case in.Component != "":
		reg, ok := n.registry.Component(in.Component)
		if !ok {
			if n.metrics != nil {
				n.metrics.RecordDispatch(kind, monitoring.OutcomeError)
			}
			return &NavigationError{Op: "start", Component: in.Component, Err: ErrNoSuchComponent}
		}
		component = reg.Name
		a = reg.New()

	default:
		regs := n.registry.Resolve(in.Action)
		switch len(regs) {
		case 0:
			// Unknown action is a warning, not an error.
			n.logger.Warn("no handler for action", zap.String("action", in.Action))
			if n.metrics != nil {
				n.metrics.RecordDispatch(kind, monitoring.OutcomeNoHandler)
			}
			return nil
		case 1:
			component = regs[0].Name
			a = regs[0].New()
		default:
			if n.metrics != nil {
				n.metrics.RecordDispatch(kind, monitoring.OutcomeChooser)
			}
			return n.launchChooser(from, in, regs, fn)
		}
	}

	if a == nil {
		if n.metrics != nil {
			n.metrics.RecordDispatch(kind, monitoring.OutcomeError)
		}
		return &NavigationError{Op: "start", Component: component, Err: fmt.Errorf("factory returned nil")}
	}

	// An existing instance absorbs the launch instead of stacking a new one.
	if in.HasFlag(FlagClearTop) {
		if idx := n.findComponent(component); idx >= 0 {
			if n.metrics != nil {
				n.metrics.RecordDispatch(kind, monitoring.OutcomeReused)
			}
			return n.clearTop(idx, in, fn)
		}
	}

	if n.metrics != nil {
		n.metrics.RecordDispatch(kind, monitoring.OutcomeLaunched)
	}
	return n.push(a, component, in, from, fn)
}

// push performs a normal launch: the outgoing top finishes its hooks
// before the incoming activity starts its own.
func (n *Navigator) push(a Activity, component string, in *Intent, launcher *Base, fn ResultFunc) error {
	outgoing := n.peek()
	if outgoing != nil {
		ob := outgoing.base()
		if ob.State() == types.StateResumed {
			n.drive(outgoing, types.HookPause)
		}
		if ob.State() == types.StatePaused {
			n.drive(outgoing, types.HookStop)
		}
		if ob.noHistory {
			n.destroyCovered(outgoing)
		}
	}

	lid := id.NewLaunchID()
	surface := NewSurface(n.surfaceW, n.surfaceH)
	b := a.base()
	b.bind(n, component, in, surface, lid)

	n.mu.Lock()
	if fn != nil {
		n.results[lid] = pendingResult{fn: fn, launcher: launcher}
	}
	n.stack.push(a)
	depth := n.stack.len()
	n.mu.Unlock()

	n.logger.Info("launching activity",
		zap.String("component", component),
		zap.String("launch_id", string(lid)),
		zap.String("action", in.Action),
		zap.Int("depth", depth),
	)
	if n.metrics != nil {
		n.metrics.IncLaunches()
		n.metrics.SetStackDepth(depth)
	}

	n.drive(a, types.HookCreate)
	n.drive(a, types.HookStart)
	n.drive(a, types.HookResume)
	return nil
}

// destroyCovered removes a no_history activity once another covers it.
// Its pending result, if any, can never be delivered and is discarded.
func (n *Navigator) destroyCovered(a Activity) {
	b := a.base()

	n.mu.Lock()
	if idx := n.stack.indexOf(b); idx >= 0 {
		n.stack.removeAt(idx)
	}
	_, hadResult := n.results[b.launchID]
	delete(n.results, b.launchID)
	n.mu.Unlock()

	n.drive(a, types.HookDestroy)
	b.surface.release()

	if hadResult {
		n.logger.Debug("pending result discarded with no-history activity",
			zap.String("component", b.component))
		if n.metrics != nil {
			n.metrics.RecordResult(monitoring.ResultDiscarded)
		}
	}
}

// clearTop destroys everything above the existing instance at idx,
// rebinding the intent to it and driving it back to the foreground.
func (n *Navigator) clearTop(idx int, in *Intent, fn ResultFunc) error {
	for {
		n.mu.Lock()
		if n.stack.len()-1 <= idx {
			n.mu.Unlock()
			break
		}
		a := n.stack.pop()
		b := a.base()
		_, hadResult := n.results[b.launchID]
		delete(n.results, b.launchID)
		n.mu.Unlock()

		switch b.State() {
		case types.StateResumed:
			n.drive(a, types.HookPause)
			n.drive(a, types.HookStop)
		case types.StatePaused:
			n.drive(a, types.HookStop)
		}
		n.drive(a, types.HookDestroy)
		b.surface.release()

		if hadResult {
			n.logger.Debug("pending result discarded by clear-top",
				zap.String("component", b.component))
			if n.metrics != nil {
				n.metrics.RecordResult(monitoring.ResultDiscarded)
			}
		}
	}

	target := n.peek()
	if target == nil {
		return nil
	}
	tb := target.base()
	tb.rebind(in)

	depth := n.Depth()
	n.logger.Info("reusing activity",
		zap.String("component", tb.component),
		zap.String("launch_id", string(tb.launchID)),
		zap.Int("depth", depth),
	)
	if n.metrics != nil {
		n.metrics.SetStackDepth(depth)
	}

	// Reuse creates no new launch, so a caller expecting a result gets
	// an immediate cancel instead of an entry that could never fire.
	if fn != nil {
		n.logger.Warn("clear-top reuse cannot carry a result",
			zap.String("component", tb.component))
		if n.metrics != nil {
			n.metrics.RecordResult(monitoring.ResultDelivered)
		}
		fn(Result{Code: ResultCanceled})
	}

	// Forward re-entry: a stopped instance restarts; one already on
	// screen cycles through pause so it observes the new intent.
	switch tb.State() {
	case types.StateStopped:
		n.drive(target, types.HookStart)
		n.drive(target, types.HookResume)
	case types.StatePaused:
		n.drive(target, types.HookResume)
	case types.StateResumed:
		n.drive(target, types.HookPause)
		n.drive(target, types.HookResume)
	}
	return nil
}

// launchChooser presents the candidate list when an implicit intent
// matches more than one registration. The original caller does not
// block; a pending result follows the eventual choice.
func (n *Navigator) launchChooser(from *Base, in *Intent, regs []Registration, fn ResultFunc) error {
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.Name
	}

	n.logger.Info("multiple handlers for action",
		zap.String("action", in.Action),
		zap.Strings("candidates", names))

	chIn := ForComponent(ChooserComponent).
		WithFlag(FlagNoHistory).
		Put(chooserExtraCandidates, names).
		Put(chooserExtraIntent, in.Clone())

	reg, ok := n.registry.Component(ChooserComponent)
	if !ok {
		return &NavigationError{Op: "start", Component: ChooserComponent, Err: ErrNoSuchComponent}
	}
	return n.push(reg.New(), ChooserComponent, chIn, from, fn)
}

// redispatch launches an explicit intent in place of from, transferring
// any pending result expectation from from's launch to the new one.
// Used by the chooser.
func (n *Navigator) redispatch(from *Base, in *Intent) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return n.run(func() error {
		top := n.peek()
		if top == nil || top.base() != from {
			n.logger.Warn("redispatch ignored: source not on top",
				zap.String("component", from.component))
			return nil
		}

		n.mu.Lock()
		entry, ok := n.results[from.launchID]
		if ok {
			delete(n.results, from.launchID)
		}
		n.mu.Unlock()

		if !ok {
			return n.launch(nil, in, nil)
		}
		return n.launch(entry.launcher, in, entry.fn)
	})
}

// finishFrom pops b when it is on top, driving it to destruction and
// delivering res to any pending waiter. A nil res discards the pending
// entry silently (back navigation, forced removal).
func (n *Navigator) finishFrom(b *Base, res *Result) {
	n.run(func() error {
		n.finishTop(b, res)
		return nil
	})
}

func (n *Navigator) finishTop(b *Base, res *Result) {
	n.mu.Lock()
	top := n.stack.peek()
	if top == nil || top.base() != b {
		n.mu.Unlock()
		// Double finish or finish of a covered activity.
		n.logger.Warn("finish ignored: not on top",
			zap.String("component", b.component),
			zap.String("state", string(b.State())))
		return
	}
	n.stack.pop()
	depth := n.stack.len()
	entry, hadEntry := n.results[b.launchID]
	delete(n.results, b.launchID)
	n.mu.Unlock()

	switch b.State() {
	case types.StateResumed:
		n.drive(top, types.HookPause)
		n.drive(top, types.HookStop)
	case types.StatePaused:
		n.drive(top, types.HookStop)
	}
	n.drive(top, types.HookDestroy)
	b.surface.release()

	if n.metrics != nil {
		n.metrics.SetStackDepth(depth)
	}

	// Delivery sits strictly between the finisher's OnDestroy and the
	// revealed activity's OnResume.
	if hadEntry {
		n.deliver(entry, b, res)
	}

	n.mu.RLock()
	next := n.stack.peek()
	awake := n.awake
	n.mu.RUnlock()

	if next != nil {
		if awake {
			n.drive(next, types.HookResume)
		}
	} else {
		n.logger.Info("back stack empty")
	}
}

func (n *Navigator) deliver(entry pendingResult, from *Base, res *Result) {
	switch {
	case res == nil:
		n.logger.Debug("result discarded: destroyed without result",
			zap.String("launch_id", string(from.launchID)))
		if n.metrics != nil {
			n.metrics.RecordResult(monitoring.ResultDiscarded)
		}
	case entry.launcher != nil && entry.launcher.destroyed.Load():
		n.logger.Debug("result discarded: launcher destroyed",
			zap.String("launch_id", string(from.launchID)))
		if n.metrics != nil {
			n.metrics.RecordResult(monitoring.ResultDiscarded)
		}
	default:
		if n.metrics != nil {
			n.metrics.RecordResult(monitoring.ResultDelivered)
		}
		entry.fn(*res)
	}
}

// Back finishes the top activity without delivering a result.
func (n *Navigator) Back() {
	n.run(func() error {
		top := n.peek()
		if top == nil {
			n.logger.Debug("back ignored: empty stack")
			return nil
		}
		n.finishTop(top.base(), nil)
		return nil
	})
}

// Sleep pauses the foreground activity (screen off). The stack stays
// intact; zero activities are resumed until Wake.
func (n *Navigator) Sleep() {
	n.run(func() error {
		n.mu.Lock()
		if !n.awake {
			n.mu.Unlock()
			return nil
		}
		n.awake = false
		top := n.stack.peek()
		n.mu.Unlock()

		n.logger.Info("sleeping")
		if top != nil && top.base().State() == types.StateResumed {
			n.drive(top, types.HookPause)
		}
		return nil
	})
}

// Wake returns the top activity to the foreground after Sleep.
func (n *Navigator) Wake() {
	n.run(func() error {
		n.mu.Lock()
		if n.awake {
			n.mu.Unlock()
			return nil
		}
		n.awake = true
		top := n.stack.peek()
		n.mu.Unlock()

		n.logger.Info("waking")
		if top == nil {
			return nil
		}
		switch top.base().State() {
		case types.StatePaused, types.StateStopped:
			n.drive(top, types.HookResume)
		}
		return nil
	})
}

// drive invokes one lifecycle hook, updates the bound state, and
// publishes the transition to metrics and listeners.
func (n *Navigator) drive(a Activity, hook types.Hook) {
	b := a.base()
	from := b.State()
	to := hookStates[hook]

	legal := (from == types.StateNone && to == types.StateCreated) || from.CanTransition(to)
	if !legal {
		n.logger.Error("illegal lifecycle transition",
			zap.String("component", b.component),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}

	start := time.Now()
	switch hook {
	case types.HookCreate:
		a.OnCreate()
	case types.HookStart:
		a.OnStart(b.surface)
	case types.HookResume:
		a.OnResume(b.surface)
	case types.HookPause:
		a.OnPause(b.surface)
	case types.HookStop:
		a.OnStop(b.surface)
	case types.HookDestroy:
		a.OnDestroy(b.surface)
	}
	elapsed := time.Since(start)

	b.setState(to)
	if hook == types.HookDestroy {
		b.destroyed.Store(true)
		b.foreground.Store(false)
	}

	n.logger.Debug("lifecycle hook",
		zap.String("component", b.component),
		zap.String("hook", string(hook)),
		zap.Duration("elapsed", elapsed))

	t := types.Transition{
		LaunchID:  string(b.launchID),
		Component: b.component,
		Hook:      hook,
		From:      from,
		To:        to,
		Animated:  !b.noAnimation,
		Elapsed:   elapsed,
		At:        time.Now(),
	}
	if n.metrics != nil {
		n.metrics.RecordTransition(t)
	}
	n.notify(t)
}

func (n *Navigator) notify(t types.Transition) {
	n.listenerMu.RLock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.listenerMu.RUnlock()

	for _, l := range listeners {
		l(t)
	}
}

// noteStaleUpdate logs a dropped UI update from a backgrounded or
// destroyed activity.
func (n *Navigator) noteStaleUpdate(b *Base) {
	n.logger.Debug("stale UI update dropped",
		zap.String("component", b.component),
		zap.String("state", string(b.State())))
}

// ============================================================================
// Introspection
// ============================================================================

// Snapshot returns the current back stack, bottom first.
func (n *Navigator) Snapshot() []types.StackEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]types.StackEntry, 0, n.stack.len())
	for i := 0; i < n.stack.len(); i++ {
		b := n.stack.at(i).base()
		out = append(out, types.StackEntry{
			Position:  i,
			Component: b.component,
			LaunchID:  string(b.launchID),
			State:     b.State(),
			NoHistory: b.noHistory,
		})
	}
	return out
}

// Top returns the top activity, nil when the stack is empty.
func (n *Navigator) Top() Activity {
	return n.peek()
}

// Depth returns the back stack depth.
func (n *Navigator) Depth() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stack.len()
}

// Awake reports whether the shell holds the screen.
func (n *Navigator) Awake() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.awake
}

// Stats returns navigator statistics.
func (n *Navigator) Stats() types.Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	st := types.Stats{
		Depth:          n.stack.len(),
		Awake:          n.awake,
		PendingResults: len(n.results),
	}
	if top := n.stack.peek(); top != nil {
		b := top.base()
		if b.State() == types.StateResumed {
			lid := string(b.launchID)
			st.ResumedID = &lid
		}
	}
	return st
}

// Registry returns the registry this navigator resolves against.
func (n *Navigator) Registry() *Registry {
	return n.registry
}

func (n *Navigator) peek() Activity {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stack.peek()
}

func (n *Navigator) findComponent(name string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stack.indexOfComponent(name)
}

func dispatchKind(in *Intent) string {
	if in.Explicit() {
		return monitoring.DispatchExplicit
	}
	return monitoring.DispatchImplicit
}

// typeName derives a component label for factory-only launches.
func typeName(a Activity) string {
	t := reflect.TypeOf(a)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "anonymous"
	}
	return t.Name()
}
