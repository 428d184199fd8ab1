//go:build !windows

package main

// enableTerminalStatus is a no-op outside Windows: ANSI escapes work
// without opt-in on every other terminal this runs on.
func enableTerminalStatus() {}
