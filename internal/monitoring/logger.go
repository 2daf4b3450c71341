// Package monitoring holds the diagnostic logger and the counters that make
// silent fallbacks in the pipeline traceable.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables Verbosef output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbosef logs through Logf only when verbose output is enabled. Per-stint
// and per-window decisions go here; run-level events use Logf directly.
func Verbosef(format string, v ...interface{}) {
	if verbose.Load() {
		Logf(format, v...)
	}
}
