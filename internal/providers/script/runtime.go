package script

import (
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/dop251/goja"
)

// Config bounds one script runtime.
type Config struct {
	Timeout       time.Duration // Budget per execution or hook call
	MaxCallStack  int           // Recursion guard
	EnableConsole bool          // Expose console.log/warn/error/info
	ConsoleLimit  int           // Retained console entries
}

// DefaultConfig returns the standard app-script limits.
func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Second,
		MaxCallStack:  1024,
		EnableConsole: true,
		ConsoleLimit:  256,
	}
}

// LogEntry is one captured console line.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Runtime wraps a goja VM with the shell's security posture: no module
// system, no process access, no timers, bounded execution time. One
// runtime backs one activity instance; calls are serialized.
type Runtime struct {
	config Config
	logger *logging.Logger

	mu sync.Mutex
	vm *goja.Runtime // Protected by mu

	consoleMu sync.Mutex
	console   []LogEntry // Protected by consoleMu
}

// New creates a sandboxed runtime.
func New(config Config, logger *logging.Logger) *Runtime {
	if logger == nil {
		logger = logging.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.ConsoleLimit <= 0 {
		config.ConsoleLimit = DefaultConfig().ConsoleLimit
	}

	r := &Runtime{
		config: config,
		logger: logger,
		vm:     goja.New(),
	}
	r.setupGlobals()
	return r
}

// setupGlobals strips escape hatches and installs the console.
func (r *Runtime) setupGlobals() {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// Timers are owned by the UI loop, not by scripts.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	r.vm.Set("setTimeout", noop)
	r.vm.Set("setInterval", noop)

	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		if len(r.console) > r.config.ConsoleLimit {
			r.console = r.console[len(r.console)-r.config.ConsoleLimit:]
		}
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// Bind installs a host value into the global scope.
func (r *Runtime) Bind(name string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm != nil {
		r.vm.Set(name, value)
	}
}

// Execute runs source within the configured budget.
func (r *Runtime) Execute(src string) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return nil, nil
	}
	return r.runGuarded(func() (goja.Value, error) {
		return r.vm.RunString(src)
	})
}

// Call invokes a global function when the script defines it. The second
// return reports whether the function existed.
func (r *Runtime) Call(name string, args ...interface{}) (interface{}, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return nil, false, nil
	}

	fn, ok := goja.AssertFunction(r.vm.Get(name))
	if !ok {
		return nil, false, nil
	}

	gargs := make([]goja.Value, len(args))
	for i, a := range args {
		gargs[i] = r.vm.ToValue(a)
	}

	v, err := r.runGuarded(func() (goja.Value, error) {
		return fn(goja.Undefined(), gargs...)
	})
	return v, true, err
}

// Has reports whether the script defines a global function.
func (r *Runtime) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return false
	}
	_, ok := goja.AssertFunction(r.vm.Get(name))
	return ok
}

// runGuarded executes with a watchdog that interrupts the VM when the
// budget runs out. Callers hold r.mu.
func (r *Runtime) runGuarded(run func() (goja.Value, error)) (interface{}, error) {
	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution budget exceeded")
		case <-done:
		}
	}()

	val, err := run()
	close(done)
	r.vm.ClearInterrupt()

	if err != nil {
		return nil, err
	}
	return export(val), nil
}

// Console returns a copy of the captured console output.
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry(nil), r.console...)
}

// Close releases the VM. Further calls become no-ops.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm = nil
}

func export(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
