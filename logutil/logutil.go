// logutil.go - Strukturiertes Logging fuer qwen2mt
// Dieses Modul stellt den slog-Logger mit TRACE-Level und gekuerzten Quellpfaden bereit.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// LevelTrace is one step below debug and is used for per-token and per-batch detail.
const LevelTrace slog.Level = -8

// NewLogger returns a text logger writing to w that drops records below level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace logs msg at LevelTrace on the default logger.
func Trace(msg string, args ...any) {
	trace(context.Background(), msg, args...)
}

// TraceContext logs msg at LevelTrace on the default logger, attributing the
// record to the caller.
func TraceContext(ctx context.Context, msg string, args ...any) {
	trace(ctx, msg, args...)
}

func trace(ctx context.Context, msg string, args ...any) {
	logger := slog.Default()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(ctx, r)
}
