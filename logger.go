package bserve

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogHandlerPanic(err error)
	LogProtocolError(err error)
	LogConnError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogHandlerPanic(err error) {
	l.Logger.Printf("bserve: recovered handler panic: %s", err)
}

func (l stdLogger) LogProtocolError(err error) {
	l.Logger.Printf("bserve: protocol error: %s", err)
}

func (l stdLogger) LogConnError(err error) {
	l.Logger.Printf("bserve: connection error: %s", err)
}

func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogHandlerPanic  int64
	NumLogProtocolError int64
	NumLogConnError     int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogHandlerPanic(err error) {
	atomic.AddInt64(&l.NumLogHandlerPanic, 1)
	l.tb.Logf("bserve: recovered handler panic: %s", err)
}

func (l *TestLogger) LogProtocolError(err error) {
	atomic.AddInt64(&l.NumLogProtocolError, 1)
	l.tb.Logf("bserve: protocol error: %s", err)
}

func (l *TestLogger) LogConnError(err error) {
	atomic.AddInt64(&l.NumLogConnError, 1)
	l.tb.Logf("bserve: connection error: %s", err)
}

// Panics returns the number of recovered handler panics so far.
func (l *TestLogger) Panics() int64 { return atomic.LoadInt64(&l.NumLogHandlerPanic) }

// ProtocolErrors returns the number of protocol errors so far.
func (l *TestLogger) ProtocolErrors() int64 { return atomic.LoadInt64(&l.NumLogProtocolError) }

var _ Logger = &TestLogger{}
