/*
Package script executes installed app code inside sandboxed goja VMs.

# Overview

Every launch of a scripted app gets a fresh Runtime: an isolated global
scope with the module system, process access, and timers stripped out,
a bounded call stack, and a per-call execution budget enforced through
VM interrupts. Console output is captured, not printed.

# Lifecycle mapping

ScriptActivity bridges the activity lifecycle into the script. The
source evaluates once in OnCreate; afterwards each lifecycle hook calls
the same-named global function when the script defines it:

	function onCreate()  {}
	function onResume()  {}
	function onPause()   {}
	function onDestroy() {}

Scripts reach back into the shell through the bound host object:

	shell.setContent({type: "label", text: "hi"});
	shell.startActivity({action: "com.example.view", extras: {id: 7}});
	shell.setPref("counter", shell.getPref("counter", 0) + 1);
	shell.finish(7, {picked: "x"});

# Containment

A script that fails to evaluate finishes itself canceled. A hook that
throws or overruns its budget is interrupted and logged. Neither takes
the shell down.
*/
package script
