package logx

import (
	"log/slog"
	"sync/atomic"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}

type holder struct{ l Logger }

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{l: slog.Default()})
}

func L() Logger {
	return current.Load().l
}

// SetLogger replaces the package logger. A nil logger discards everything.
func SetLogger(l Logger) {
	if l == nil {
		l = nop{}
	}
	current.Store(&holder{l: l})
}

const redacted = "[redacted]"

// Redacted wraps a secret so that it never reaches a log sink in clear text.
type Redacted string

func (Redacted) LogValue() slog.Value { return slog.StringValue(redacted) }

func (Redacted) String() string { return redacted }

// Present reports only whether a secret was supplied.
func Present(secret string) slog.Value {
	if secret == "" {
		return slog.StringValue("<empty>")
	}
	return slog.StringValue(redacted)
}
