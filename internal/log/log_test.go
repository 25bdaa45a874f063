package log

import (
	"bytes"
	"context"
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
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)
	l.Info("write failed", "error", "i2c nack")

	out := buf.String()
	if !strings.Contains(out, "err=") {
		t.Errorf("expected err= key, got %q", out)
	}
	if strings.Contains(out, "error=") {
		t.Errorf("error key should be renamed, got %q", out)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestInit_LaterCallsChangeLevel(t *testing.T) {
	Init("warn")
	if L().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn")
	}
	Init("debug")
	if !L().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after Init(\"debug\")")
	}
	Init("info")
}
