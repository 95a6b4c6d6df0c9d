// Package prefs provides namespaced key/value preference stores.
//
// Each namespace persists as one JSON file under the prefs directory.
// Writes go through a temp-file rename so interrupted writes never
// corrupt a store. Namespaces follow app IDs; the shell's own settings
// live in the "system" namespace.
package prefs
