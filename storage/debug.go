package storage

import (
	"github.com/sirupsen/logrus"
)

var debug = &logger{}

func d(s string, args ...interface{}) {
	debug.debug(s, args...)
}

type logger struct {
	entry           *logrus.Entry
	debuggerEnabled bool
}

func (l *logger) debug(s string, args ...interface{}) {
	if l.debuggerEnabled && l.entry != nil {
		l.entry.Debugf(s, args...)
	}
}

// init turns debug output on for the package; entry may be nil to use the standard logger
func (l *logger) init(enabled bool, entry *logrus.Entry) {
	l.debuggerEnabled = enabled
	if !enabled {
		l.entry = nil
		return
	}
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	l.entry = entry.WithField("component", "storage")
}
