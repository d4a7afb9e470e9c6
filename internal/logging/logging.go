// Package logging constructs the per-component structured loggers used
// throughout fedcore. Each component gets its own *logrus.Logger, following
// the teacher convention of a package-level SetXxxLogger override (see
// core/security.go, core/watchtower_node.go) so tests can inject a silent
// logger without touching global state.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logger entry for the named component at the given level. An
// empty level falls back to "info". Unparsable levels fall back to "info"
// too. The returned entry carries a persistent "component" field.
func New(component, level string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l.WithField("component", component)
}

// Discard returns a logger entry that drops all output; used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}
