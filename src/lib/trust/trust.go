// Package trust is the module's leveled logging facade. It keeps the
// mask-style level control the rest of the code is used to, but the
// actual formatting and emission ride on go-kit's structured logger so
// the output lines up with everything else that logs.
package trust

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type MaskLevel int

const (
	Nothing   MaskLevel = 0x0
	ErrorMask MaskLevel = 0x1
	WarnMask  MaskLevel = 0x2
	InfoMask  MaskLevel = 0x4
	DebugMask MaskLevel = 0x8
)

// Logger wraps a go-kit logger with mask-controlled leveling.
type Logger struct {
	kit  log.Logger
	mask MaskLevel
}

// New builds a Logger writing logfmt to w. A zero mask logs nothing.
func New(w io.Writer, mask MaskLevel) *Logger {
	return &Logger{
		kit:  log.NewSyncLogger(log.NewLogfmtLogger(w)),
		mask: mask,
	}
}

// NewDefault logs everything to stderr.
func NewDefault() *Logger {
	return New(os.Stderr, ErrorMask|WarnMask|InfoMask|DebugMask)
}

// SetLevel replaces the mask and returns the previous one.
func (l *Logger) SetLevel(mask MaskLevel) MaskLevel {
	prev := l.mask
	l.mask = mask
	return prev
}

// Kit exposes the underlying go-kit logger for components that take
// one directly.
func (l *Logger) Kit() log.Logger {
	return l.kit
}

// Errorf prints the given log message (format + params) at error level.
func (l *Logger) Errorf(format string, params ...interface{}) {
	if l.mask&ErrorMask != 0 {
		level.Error(l.kit).Log("msg", fmt.Sprintf(format, params...))
	}
}

// Warnf prints the given log message (format + params) at warn level.
func (l *Logger) Warnf(format string, params ...interface{}) {
	if l.mask&WarnMask != 0 {
		level.Warn(l.kit).Log("msg", fmt.Sprintf(format, params...))
	}
}

// Infof prints the given log message (format + params) at info level.
func (l *Logger) Infof(format string, params ...interface{}) {
	if l.mask&InfoMask != 0 {
		level.Info(l.kit).Log("msg", fmt.Sprintf(format, params...))
	}
}

// Debugf prints the given log message (format + params) at debug level.
func (l *Logger) Debugf(format string, params ...interface{}) {
	if l.mask&DebugMask != 0 {
		level.Debug(l.kit).Log("msg", fmt.Sprintf(format, params...))
	}
}

// Fatalf prints the given log message and then exits with the exitCode
// provided. Fatalf is not maskable.
func (l *Logger) Fatalf(exitCode int, format string, params ...interface{}) {
	level.Error(l.kit).Log("msg", fmt.Sprintf(format, params...), "fatal", true)
	osExit(exitCode)
}

// osExit is swapped out by tests.
var osExit = os.Exit
