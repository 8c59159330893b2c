package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"warn":     slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"":         slog.LevelInfo,
		"VERBOSE?": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := Text(&buf, slog.LevelInfo)

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Errorf("Expected log line with message and attr, got %q", out)
	}
}

func TestWithAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := Text(&buf, slog.LevelInfo).With("component", "test")
	l.Info("msg")

	if !strings.Contains(buf.String(), "component=test") {
		t.Errorf("Expected component attr, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := JSON(&buf, slog.LevelWarn)
	l.Debug("hidden")
	l.Info("hidden too")
	l.Error("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Below-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("Expected error message, got %q", out)
	}
}
