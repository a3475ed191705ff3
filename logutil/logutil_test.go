package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)
	logger.Log(t.Context(), LevelTrace, "batch", "row", 3)

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("erwartet level=TRACE, erhalten %q", out)
	}
	if !strings.Contains(out, "source=logutil_test.go:") {
		t.Errorf("erwartet gekuerzten Quellpfad, erhalten %q", out)
	}
}

func TestTraceRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, slog.LevelInfo))
	Trace("hidden")
	if buf.Len() != 0 {
		t.Errorf("erwartet keine Ausgabe, erhalten %q", buf.String())
	}

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("shown", "k", "v")
	if !strings.Contains(buf.String(), "msg=shown k=v") {
		t.Errorf("erwartet Trace-Ausgabe, erhalten %q", buf.String())
	}
}

func TestTraceContextSource(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	TraceContext(t.Context(), "step", "iter", 1)
	if !strings.Contains(buf.String(), "source=logutil_test.go:") {
		t.Errorf("erwartet Aufrufer als Quelle, erhalten %q", buf.String())
	}
}
