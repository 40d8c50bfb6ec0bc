// Package monitoring holds the process-wide diagnostic logger shared by the
// tracker, the inference collaborators and the frame log.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests mute it with SetLogger(nil).
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput routes Logf to w with the standard log flags.
func SetOutput(w io.Writer) {
	l := log.New(w, "", log.LstdFlags)
	Logf = l.Printf
}

// Prefixed returns a logger that prepends "[component] " to every line and
// resolves Logf at call time, so later SetLogger calls still apply.
func Prefixed(component string) func(format string, v ...interface{}) {
	prefix := fmt.Sprintf("[%s] ", component)
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}

// Counter is a monotonically increasing event count safe for concurrent use.
type Counter struct {
	n atomic.Uint64
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() uint64 { return c.n.Add(1) }

// Load returns the current value.
func (c *Counter) Load() uint64 { return c.n.Load() }
