package logger

import (
	"context"
	"time"

	"CryptoLens_MarketData/internal/models"
	"github.com/google/uuid"
)

type contextKey string

const logEventKey contextKey = "log_event"

// NewLogEvent creates a log event with a fresh process id
func NewLogEvent(processType models.ProcessType, clientIP string) *models.LogEvent {
	return &models.LogEvent{
		ProcessID:   uuid.New().String(),
		ProcessType: processType,
		StartTime:   time.Now().UTC(),
		ClientIP:    clientIP,
	}
}

// NewRequestLogEvent creates a log event for an API request. A valid UUID in
// requestID (the caller's X-Request-ID) is reused as the process id.
func NewRequestLogEvent(clientIP, requestID string) *models.LogEvent {
	event := NewLogEvent(models.ProcessTypeRequest, clientIP)
	if id, err := uuid.Parse(requestID); err == nil {
		event.ProcessID = id.String()
	}
	return event
}

// NewInternalLogEvent creates a log event for background work (startup, sweeps, CLI)
func NewInternalLogEvent() *models.LogEvent {
	return NewLogEvent(models.ProcessTypeInternal, "")
}

// WithLogEvent adds a log event to the context
func WithLogEvent(ctx context.Context, logEvent *models.LogEvent) context.Context {
	return context.WithValue(ctx, logEventKey, logEvent)
}

// GetLogEvent retrieves the log event from context, or a new internal one
func GetLogEvent(ctx context.Context) *models.LogEvent {
	if le, ok := ctx.Value(logEventKey).(*models.LogEvent); ok && le != nil {
		return le
	}
	return NewInternalLogEvent()
}
