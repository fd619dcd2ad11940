package kmerdb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with graph-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSource adds the name of the graph file or blob.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", source),
	}
}

// WithKmerSize adds a kmer_size field to the logger.
func (l *Logger) WithKmerSize(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("kmer_size", k),
	}
}

// WithColors adds a colours field to the logger.
func (l *Logger) WithColors(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("colors", n),
	}
}

// LogHeader logs the parameters of a file about to be loaded.
func (l *Logger) LogHeader(ctx context.Context, info Info) {
	l.DebugContext(ctx, "graph header read",
		"kmer_size", info.KmerSize,
		"colors", info.FileColors,
		"edge_colors", info.FileEdgeCols,
		"records", info.Records,
		"compression", info.Compression.String(),
	)
}

// LogLoad logs the outcome of a load.
func (l *Logger) LogLoad(ctx context.Context, stats LoadStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph load failed",
			"records_read", stats.Read,
			"duration", stats.Duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "graph loaded",
		"records", stats.Read,
		"kmers", stats.Loaded,
		"skipped_empty", stats.SkippedEmpty,
		"skipped_filtered", stats.SkippedFiltered,
		"capacity", stats.Capacity,
		"duration", stats.Duration,
	)
}

// LogSave logs the outcome of a save.
func (l *Logger) LogSave(ctx context.Context, target string, records uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "graph save failed",
			"target", target,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "graph saved",
		"target", target,
		"records", records,
	)
}

// LogHealthcheck logs the outcome of a reciprocal edge check.
func (l *Logger) LogHealthcheck(ctx context.Context, checked uint64, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "graph healthcheck failed",
			"checked", checked,
			"duration", duration,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "graph healthcheck passed",
		"checked", checked,
		"duration", duration,
	)
}

// LogClose logs the release of a graph.
func (l *Logger) LogClose(ctx context.Context, kmers uint64, released int64) {
	l.DebugContext(ctx, "graph closed",
		"kmers", kmers,
		"released_bytes", released,
	)
}
