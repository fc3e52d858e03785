package log

import (
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHandlerOutput(t *testing.T) {
	var buf strings.Builder
	logger := New(&buf, slog.LevelInfo)

	logger.Info("plugin loaded", "plugin", "com.example.test", "tier", "community")

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("record not newline-terminated: %q", line)
	}
	for _, want := range []string{"INFO", "plugin loaded", "plugin=com.example.test", "tier=community"} {
		if !strings.Contains(line, want) {
			t.Errorf("output missing %q: %q", want, line)
		}
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf strings.Builder
	logger := New(&buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("also hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-threshold records leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf strings.Builder
	base := New(&buf, slog.LevelInfo)
	scoped := base.With("component", "registry")

	scoped.Info("catalog fetched", "plugins", 3)

	line := buf.String()
	if !strings.Contains(line, "component=registry") {
		t.Errorf("inherited attr missing: %q", line)
	}
	if !strings.Contains(line, "plugins=3") {
		t.Errorf("record attr missing: %q", line)
	}

	// The scoped handler must not mutate the base.
	buf.Reset()
	base.Info("plain")
	if strings.Contains(buf.String(), "component=") {
		t.Errorf("base handler gained scoped attrs: %q", buf.String())
	}
}

func TestWithAttrsSharesWriteLock(t *testing.T) {
	h := NewHandler(&strings.Builder{}, slog.LevelInfo)
	derived, ok := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*Handler)
	if !ok {
		t.Fatalf("WithAttrs returned %T, want *Handler", h.WithAttrs(nil))
	}
	if derived.mu != h.mu {
		t.Error("derived handler has its own mutex; concurrent writes can interleave")
	}
}
