package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"CryptoLens_MarketData/internal/models"
)

// SlogLogger implements Service by writing structured records through log/slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a logger writing to stdout. level is one of
// debug/info/warn/error (default info); format is "json" (default) or "text".
func NewSlogLogger(level, format string) Service {
	return newSlogLogger(os.Stdout, level, format)
}

// NewSlogLoggerTo is NewSlogLogger writing to w
func NewSlogLoggerTo(w io.Writer, level, format string) Service {
	return newSlogLogger(w, level, format)
}

func newSlogLogger(w io.Writer, level, format string) *SlogLogger {
	return &SlogLogger{logger: NewHandlerLogger(w, level, format)}
}

// NewHandlerLogger builds the *slog.Logger used by SlogLogger and as the
// DatabaseLogger fallback
func NewHandlerLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogInfo logs an informational message
func (l *SlogLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	l.write(ctx, slog.LevelInfo, newEntry(ctx, "", operation, "", message, nil, metadata))
}

// LogSuccess logs a successful operation
func (l *SlogLogger) LogSuccess(ctx context.Context, operation, targetName, message string, metadata map[string]interface{}) {
	l.write(ctx, slog.LevelInfo, newEntry(ctx, "", operation, targetName, message, nil, metadata))
}

// LogError logs an error; low severity is emitted as a warning
func (l *SlogLogger) LogError(ctx context.Context, operation, targetName, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	level := slog.LevelError
	if severity == models.LogSeverityLow {
		level = slog.LevelWarn
	}
	l.write(ctx, level, newEntry(ctx, severity, operation, targetName, message, err, metadata))
}

func (l *SlogLogger) write(ctx context.Context, level slog.Level, entry *models.LogEntry) {
	attrs := []any{
		"operation", entry.Operation,
		"process_id", entry.ProcessID,
		"process_type", string(entry.ProcessType),
	}
	if entry.TargetName != "" {
		attrs = append(attrs, "target", entry.TargetName)
	}
	if entry.Severity != "" {
		attrs = append(attrs, "severity", string(entry.Severity))
	}
	if entry.ClientIP != "" {
		attrs = append(attrs, "client_ip", entry.ClientIP)
	}
	if entry.Error != "" {
		attrs = append(attrs, "error", entry.Error)
	}
	if len(entry.Metadata) > 0 {
		attrs = append(attrs, "metadata", entry.Metadata)
	}
	l.logger.Log(ctx, level, entry.Message, attrs...)
}

// Close is a no-op; stdout is not owned by the logger
func (l *SlogLogger) Close() error {
	return nil
}
