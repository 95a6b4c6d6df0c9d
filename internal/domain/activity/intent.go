package activity

// Factory constructs a fresh activity instance for each launch.
type Factory func() Activity

// Behavior flags understood by the navigator.
const (
	// FlagClearTop reuses an existing stack instance of the target,
	// destroying everything above it.
	FlagClearTop = "clear_top"

	// FlagNoHistory destroys the launched activity as soon as another
	// activity covers it.
	FlagNoHistory = "no_history"

	// FlagNoAnimation marks the transition events so the compositor
	// skips the launch animation.
	FlagNoAnimation = "no_animation"
)

// Intent describes a navigation request. An intent is explicit when it
// names its destination (Target or Component) and implicit when it only
// carries an Action for the registry to resolve. At least one of the
// three must be set; violations surface at dispatch, not construction.
//
// Intents are built by chaining:
//
//	in := activity.ForAction("share").
//	    Put("path", "/data/photo.jpg").
//	    WithFlag(activity.FlagNoHistory)
//
// The navigator never mutates an intent after hand-off.
type Intent struct {
	Target    Factory                // Explicit destination by factory
	Component string                 // Explicit destination by registered name
	Action    string                 // Implicit destination, resolved via the registry
	Extras    map[string]interface{} // Arbitrary payload
	Flags     map[string]bool        // Behavior switches
}

// NewIntent creates an empty intent.
func NewIntent() *Intent {
	return &Intent{
		Extras: make(map[string]interface{}),
		Flags:  make(map[string]bool),
	}
}

// ForAction creates an implicit intent.
func ForAction(action string) *Intent {
	return NewIntent().WithAction(action)
}

// ForTarget creates an explicit intent from a factory.
func ForTarget(f Factory) *Intent {
	return NewIntent().WithTarget(f)
}

// ForComponent creates an explicit intent naming a registered component.
func ForComponent(name string) *Intent {
	return NewIntent().WithComponent(name)
}

// WithTarget sets the explicit factory destination.
func (in *Intent) WithTarget(f Factory) *Intent {
	in.Target = f
	return in
}

// WithComponent sets the explicit named destination.
func (in *Intent) WithComponent(name string) *Intent {
	in.Component = name
	return in
}

// WithAction sets the implicit action.
func (in *Intent) WithAction(action string) *Intent {
	in.Action = action
	return in
}

// Put stores one extra and returns the intent for chaining.
func (in *Intent) Put(key string, value interface{}) *Intent {
	if in.Extras == nil {
		in.Extras = make(map[string]interface{})
	}
	in.Extras[key] = value
	return in
}

// PutAll merges the given extras into the intent.
func (in *Intent) PutAll(extras map[string]interface{}) *Intent {
	for k, v := range extras {
		in.Put(k, v)
	}
	return in
}

// WithFlag enables one behavior flag and returns the intent for chaining.
func (in *Intent) WithFlag(flag string) *Intent {
	if in.Flags == nil {
		in.Flags = make(map[string]bool)
	}
	in.Flags[flag] = true
	return in
}

// HasFlag reports whether a flag is enabled.
func (in *Intent) HasFlag(flag string) bool {
	return in != nil && in.Flags[flag]
}

// GetExtra returns one extra and whether it was present.
func (in *Intent) GetExtra(key string) (interface{}, bool) {
	if in == nil || in.Extras == nil {
		return nil, false
	}
	v, ok := in.Extras[key]
	return v, ok
}

// GetString returns a string extra, or the empty string when absent
// or of another type.
func (in *Intent) GetString(key string) string {
	if v, ok := in.GetExtra(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Explicit reports whether the intent names its destination.
func (in *Intent) Explicit() bool {
	return in != nil && (in.Target != nil || in.Component != "")
}

// Validate checks the structural contract: at least one of target,
// component, or action must be set.
func (in *Intent) Validate() error {
	if in == nil {
		return ErrInvalidIntent
	}
	if in.Target == nil && in.Component == "" && in.Action == "" {
		return ErrInvalidIntent
	}
	return nil
}

// Clone returns a copy with its own extras and flags maps. Extra values
// are shared, not deep-copied.
func (in *Intent) Clone() *Intent {
	if in == nil {
		return nil
	}
	out := &Intent{
		Target:    in.Target,
		Component: in.Component,
		Action:    in.Action,
		Extras:    make(map[string]interface{}, len(in.Extras)),
		Flags:     make(map[string]bool, len(in.Flags)),
	}
	for k, v := range in.Extras {
		out.Extras[k] = v
	}
	for k, v := range in.Flags {
		out.Flags[k] = v
	}
	return out
}
