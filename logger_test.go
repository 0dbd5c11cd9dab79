package apiclient

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
)

func TestNopLogger(t *testing.T) {
	t.Run("methods do nothing", func(t *testing.T) {
		l := NopLogger{}
		l.Debug("test message", "key", "value")
		l.Info("test message", "key", "value")
		l.Warn("test message", "key", "value")
		l.Error("test message", "key", "value")
	})

	t.Run("With returns same NopLogger", func(t *testing.T) {
		l2 := NopLogger{}.With("key", "value")
		if _, ok := l2.(NopLogger); !ok {
			t.Error("With should return NopLogger")
		}
	})
}

func TestSlogAdapter(t *testing.T) {
	t.Run("NewSlogAdapter with nil uses default", func(t *testing.T) {
		adapter := NewSlogAdapter(nil)
		if adapter.logger == nil {
			t.Error("adapter.logger should not be nil")
		}
	})

	t.Run("levels are forwarded", func(t *testing.T) {
		var buf bytes.Buffer
		handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		adapter := NewSlogAdapter(slog.New(handler))

		adapter.Debug("debug message", "key", "value")
		adapter.Info("info message")
		adapter.Warn("warn message")
		adapter.Error("error message")

		out := buf.String()
		for _, want := range []string{"level=DEBUG", "debug message", "key=value", "level=INFO", "level=WARN", "level=ERROR"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got: %s", want, out)
			}
		}
	})

	t.Run("With prepends attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		adapter := NewSlogAdapter(slog.New(handler)).With("component", "auth")

		adapter.Info("refreshed")
		if !strings.Contains(buf.String(), "component=auth") {
			t.Errorf("expected component attribute, got: %s", buf.String())
		}
	})
}

func TestLoggerSatisfiesLeveledLogger(t *testing.T) {
	var _ retryablehttp.LeveledLogger = NopLogger{}
	var _ retryablehttp.LeveledLogger = Logger(NewSlogAdapter(nil))
}

func TestLoggerOrNop(t *testing.T) {
	if _, ok := LoggerOrNop(nil).(NopLogger); !ok {
		t.Error("nil logger should become NopLogger")
	}
	a := NewSlogAdapter(nil)
	if LoggerOrNop(a) != Logger(a) {
		t.Error("non-nil logger should be returned unchanged")
	}
}
