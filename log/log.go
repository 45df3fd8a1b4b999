// Package log wraps the xlog logger the teacher uses for its MySQL
// wire-protocol listener (scm/mysql.go's MySQLWrapper), giving the OSD
// core named severities matching the error taxonomy of §7: dropped
// decode failures warn, allocation failures error, lifecycle
// transitions inform.
package log

import (
	"fmt"

	"github.com/launix-de/go-mysqlstack/xlog"
)

type Logger struct {
	name  string
	inner *xlog.Log
}

// New builds a logger named for the OSD instance (typically
// "osd.<id>"), every line prefixed with that name.
func New(name string) *Logger {
	return &Logger{name: name, inner: xlog.NewStdLog(xlog.Level(xlog.INFO))}
}

func (l *Logger) Infof(format string, args ...any) {
	l.inner.Info(l.name + ": " + fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...any) {
	l.inner.Warning(l.name + ": " + fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.inner.Error(l.name + ": " + fmt.Sprintf(format, args...))
}
