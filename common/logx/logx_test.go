package logx_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/axent-pl/jwtbearer/common/logx"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.record(msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.record(msg) }

func restoreLogger(t *testing.T) {
	t.Helper()
	prev := logx.L()
	t.Cleanup(func() { logx.SetLogger(prev) })
}

func TestSetLogger(t *testing.T) {
	tests := []struct {
		name   string
		logger func() logx.Logger
	}{
		{
			name:   "nil discards",
			logger: func() logx.Logger { return nil },
		},
		{
			name:   "custom implementation",
			logger: func() logx.Logger { return &recordingLogger{} },
		},
		{
			name: "slog logger",
			logger: func() logx.Logger {
				return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLogger(t)
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("SetLogger() panicked: %v", r)
				}
			}()

			logx.SetLogger(tt.logger())
			if logx.L() == nil {
				t.Fatal("L() returned nil")
			}
			logx.L().Debug("debug")
			logx.L().Error("error")
		})
	}
}

func TestSetLogger_CustomReceivesMessages(t *testing.T) {
	restoreLogger(t)
	rec := &recordingLogger{}
	logx.SetLogger(rec)
	logx.L().Info("hello")

	if len(rec.msgs) != 1 || rec.msgs[0] != "hello" {
		t.Fatalf("unexpected messages: %v", rec.msgs)
	}
}

func TestRedacted(t *testing.T) {
	secret := logx.Redacted("s3cr3t")
	if secret.String() != "[redacted]" {
		t.Errorf("String() leaked: %s", secret.String())
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("login", "client_secret", secret)
	if strings.Contains(buf.String(), "s3cr3t") {
		t.Fatalf("secret leaked into log output: %s", buf.String())
	}
}

func TestPresent(t *testing.T) {
	if got := logx.Present("").String(); got != "<empty>" {
		t.Errorf("Present(\"\"): got %s", got)
	}
	if got := logx.Present("s3cr3t").String(); got != "[redacted]" {
		t.Errorf("Present(secret): got %s", got)
	}
}
