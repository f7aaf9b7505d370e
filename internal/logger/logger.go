package logger

import (
	"context"
	"log/slog"
	"time"

	"CryptoLens_MarketData/internal/models"

	"github.com/google/uuid"
)

// DatabaseLogger implements the Service interface using a database backend
type DatabaseLogger struct {
	db       DatabaseConnection
	fallback *slog.Logger
	timeout  time.Duration
}

// NewDatabaseLogger creates a new database logger. Entries that cannot be
// stored are written to fallback instead.
func NewDatabaseLogger(db DatabaseConnection, fallback *slog.Logger) Service {
	if fallback == nil {
		fallback = slog.Default()
	}
	return &DatabaseLogger{
		db:       db,
		fallback: fallback,
		timeout:  5 * time.Second,
	}
}

// LogInfo logs an informational message (no severity)
func (l *DatabaseLogger) LogInfo(ctx context.Context, operation, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, "", message, nil, metadata)
}

// LogSuccess logs a successful operation (no severity)
func (l *DatabaseLogger) LogSuccess(ctx context.Context, operation, targetName, message string, metadata map[string]interface{}) {
	l.logEntry(ctx, "", operation, targetName, message, nil, metadata)
}

// LogError logs an error with required severity
func (l *DatabaseLogger) LogError(ctx context.Context, operation, targetName, message string, err error, severity models.LogSeverity, metadata map[string]interface{}) {
	l.logEntry(ctx, severity, operation, targetName, message, err, metadata)
}

func (l *DatabaseLogger) logEntry(ctx context.Context, severity models.LogSeverity, operation, targetName, message string, err error, metadata map[string]interface{}) {
	entry := newEntry(ctx, severity, operation, targetName, message, err, metadata)

	// Insert asynchronously so logging never sits on the request path
	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.db.InsertLog(logCtx, entry); err != nil {
			l.fallback.Error("failed to insert log entry",
				"error", err,
				"operation", entry.Operation,
				"message", entry.Message,
			)
		}
	}()
}

// Close closes the logger and its database connection
func (l *DatabaseLogger) Close() error {
	return l.db.Close()
}

// newEntry builds a LogEntry annotated with the LogEvent carried by ctx
func newEntry(ctx context.Context, severity models.LogSeverity, operation, targetName, message string, err error, metadata map[string]interface{}) *models.LogEntry {
	logEvent := GetLogEvent(ctx)

	entry := &models.LogEntry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Severity:    severity,
		Message:     message,
		Operation:   operation,
		TargetName:  targetName,
		ProcessID:   logEvent.ProcessID,
		ProcessType: logEvent.ProcessType,
		ClientIP:    logEvent.ClientIP,
		Metadata:    metadata,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// LogOperations defines constants for common operations
const (
	OpListings        = "top_listings"
	OpPriceHistory    = "price_history"
	OpCoinDetails     = "coin_details"
	OpSearch          = "search"
	OpCoinLookup      = "coin_lookup"
	OpRecommendations = "recommendations"
	OpCacheHit        = "cache_hit"
	OpCacheMiss       = "cache_miss"
	OpCacheSet        = "cache_set"
	OpUpstreamFetch   = "upstream_fetch"
	OpRetryBackoff    = "retry_backoff"
	OpLimiterDispatch = "limiter_dispatch"
	OpRateLimited     = "rate_limited"
	OpStackInit       = "stack_init"
	OpServerStart     = "server_start"
	OpServerShutdown  = "server_shutdown"
	OpHealthCheck     = "health_check"
)
