// Package activity implements the shell's navigation core: activities,
// intents, the back stack, and the lifecycle engine that drives them.
//
// An activity is a screen. Activities embed Base, override the
// lifecycle hooks they care about, and are launched by dispatching an
// Intent through a Navigator. The navigator owns the back stack and
// guarantees the lifecycle contract: hooks run one at a time on the UI
// executor, an outgoing activity is fully paused and stopped before the
// incoming one is created, and a finishing activity delivers its result
// after its own OnDestroy but before the revealed activity resumes.
//
// Components:
//   - Intent: declarative launch request (target, component, or action)
//   - Registry: maps actions and component names to activity factories
//   - Navigator: back stack plus the lifecycle state machine
//   - Base: embeddable activity foundation and navigation API
//   - Chooser: built-in disambiguation screen for implicit intents
//   - Surface: per-activity render target
//
// Features:
//   - Explicit and implicit intent resolution with chooser fallback
//   - clear_top, no_history, and no_animation launch flags
//   - At-most-once result delivery keyed by launch
//   - Sleep/wake without losing the back stack
//   - Reentrancy-safe: hooks may start or finish activities freely
//
// Example Usage:
//
//	nav := activity.NewNavigator(registry, logger)
//	err := nav.StartActivity(activity.ForAction("com.example.view"))
//	nav.Back()
package activity
