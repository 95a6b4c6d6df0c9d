package activity

// ChooserComponent is the component name the built-in chooser registers
// under. The navigator launches it when an implicit intent matches more
// than one handler.
const ChooserComponent = "system.chooser"

// Extras the navigator hands to the chooser.
const (
	chooserExtraCandidates = "chooser.candidates"
	chooserExtraIntent     = "chooser.intent"
)

// Chooser lets the user pick between several handlers of an implicit
// intent. It sits on the back stack like any other activity but is
// always launched with no_history, so the chosen launch (or anything
// else covering it) destroys it. Choosing relaunches the original
// intent explicitly at the picked component; a result expectation
// registered by the original caller follows the chosen launch.
type Chooser struct {
	Base

	candidates []string
	original   *Intent
}

// OnCreate pulls the candidate list and the intent being disambiguated
// out of the launch extras.
func (c *Chooser) OnCreate() {
	if v, ok := c.Intent().GetExtra(chooserExtraCandidates); ok {
		if names, ok := v.([]string); ok {
			c.candidates = names
		}
	}
	if v, ok := c.Intent().GetExtra(chooserExtraIntent); ok {
		if in, ok := v.(*Intent); ok {
			c.original = in
		}
	}
}

// OnResume renders the candidate menu.
func (c *Chooser) OnResume(s *Surface) {
	c.Base.OnResume(s)
	c.SetContentView(map[string]interface{}{
		"type":       "chooser",
		"action":     c.Action(),
		"candidates": c.Candidates(),
	})
}

// Action returns the action of the intent being disambiguated.
func (c *Chooser) Action() string {
	if c.original == nil {
		return ""
	}
	return c.original.Action
}

// Candidates returns the component names on offer, in resolution order.
func (c *Chooser) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

// Choose relaunches the original intent at the i-th candidate. An
// out-of-range index is ignored so a stale tap cannot crash the shell.
func (c *Chooser) Choose(i int) error {
	if c.nav == nil {
		return &NavigationError{Op: "choose", Component: ChooserComponent, Err: ErrDetached}
	}
	if i < 0 || i >= len(c.candidates) || c.original == nil {
		return nil
	}
	in := c.original.Clone().WithComponent(c.candidates[i])
	return c.nav.redispatch(c.base(), in)
}

// Cancel dismisses the chooser. A caller that expected a result from
// the original intent receives ResultCanceled.
func (c *Chooser) Cancel() {
	c.FinishCanceled()
}
