package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpMocks "CryptoLens_MarketData/internal/http/mocks"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/mocks"
	"CryptoLens_MarketData/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware_Success(t *testing.T) {
	mockLogger := &mocks.MockLogger{}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logEvent := logger.GetLogEvent(r.Context())
		assert.Equal(t, models.ProcessTypeRequest, logEvent.ProcessType)
		assert.Equal(t, "192.168.1.1", logEvent.ClientIP)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	mockLogger.On("LogInfo", mock.Anything, "http_request_start", "HTTP request received", mock.Anything).Return()
	mockLogger.On("LogInfo", mock.Anything, "http_request_complete", "HTTP request processed", mock.MatchedBy(func(metadata map[string]interface{}) bool {
		return metadata["method"] == "GET" &&
			metadata["path"] == "/test" &&
			metadata["status_code"] == 200 &&
			metadata["client_ip"] == "192.168.1.1"
	})).Return()

	handler := loggingMiddleware(mockLogger)(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	mockLogger.AssertExpectations(t)
}

func TestLoggingMiddleware_ReusesRequestID(t *testing.T) {
	const requestID = "6f1c3a52-7a0e-4d8b-9c61-2f7d0e9b3a11"

	var seen string
	handler := loggingMiddleware(mocks.NewQuietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.GetLogEvent(r.Context()).ProcessID
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", requestID)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, requestID, seen)
	assert.Equal(t, requestID, w.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware_IgnoresInvalidRequestID(t *testing.T) {
	handler := loggingMiddleware(mocks.NewQuietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.NotEqual(t, "<script>", w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware_ForwardedClientIP(t *testing.T) {
	mockLogger := &mocks.MockLogger{}

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10.0.0.5", logger.GetLogEvent(r.Context()).ClientIP)
		w.WriteHeader(http.StatusNotFound)
	})

	mockLogger.On("LogInfo", mock.Anything, "http_request_start", "HTTP request received", mock.Anything).Return()
	mockLogger.On("LogInfo", mock.Anything, "http_request_complete", "HTTP request processed", mock.MatchedBy(func(metadata map[string]interface{}) bool {
		return metadata["status_code"] == 404 &&
			metadata["client_ip"] == "10.0.0.5" &&
			metadata["user_agent"] == "test-agent"
	})).Return()

	handler := loggingMiddleware(mockLogger)(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/coins/x", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.5, 192.168.1.1")
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "192.168.1.100:8080"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockLogger.AssertExpectations(t)
}

func TestCorsMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for preflight")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/markets", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCorsMiddleware_RegularRequest(t *testing.T) {
	called := false
	handler := corsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	assert.True(t, called)
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestRecoveryMiddleware_Panic(t *testing.T) {
	mockLogger := &mocks.MockLogger{}

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	mockLogger.On("LogError", mock.Anything, "panic_recovery", "", "Panic recovered in HTTP handler", mock.MatchedBy(func(err error) bool {
		return err.Error() == "panic: test panic"
	}), models.LogSeverityHigh, mock.MatchedBy(func(metadata map[string]interface{}) bool {
		return metadata["panic"] == "test panic" &&
			metadata["path"] == "/test" &&
			metadata["method"] == "GET"
	})).Return()

	handler := recoveryMiddleware(mockLogger)(panicHandler)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "internal server error", response["error"])
	mockLogger.AssertExpectations(t)
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	mockLogger := &mocks.MockLogger{}

	handler := recoveryMiddleware(mockLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockLogger.AssertNotCalled(t, "LogError", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func requestWithLogEvent(method, path, clientIP, processID string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	logEvent := &models.LogEvent{
		ProcessID:   processID,
		ProcessType: models.ProcessTypeRequest,
		StartTime:   time.Now().UTC(),
		ClientIP:    clientIP,
	}
	return req.WithContext(logger.WithLogEvent(req.Context(), logEvent))
}

func TestRateLimitingMiddleware_Allowed(t *testing.T) {
	mockRateLimiter := &httpMocks.MockRateLimiter{}
	mockLogger := &mocks.MockLogger{}

	mockRateLimiter.On("Allow", "192.168.1.1").Return(true)

	handler := rateLimitingMiddleware(mockRateLimiter, mockLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("success"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithLogEvent(http.MethodGet, "/test", "192.168.1.1", "test-123"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
	mockRateLimiter.AssertExpectations(t)
}

func TestRateLimitingMiddleware_RateLimited(t *testing.T) {
	mockRateLimiter := &httpMocks.MockRateLimiter{}
	mockLogger := &mocks.MockLogger{}

	mockRateLimiter.On("Allow", "192.168.1.1").Return(false)
	mockLogger.On("LogError", mock.Anything, "rate_limited", "", "Rate limit exceeded", models.ErrRateLimitExceeded, models.LogSeverityMedium, mock.MatchedBy(func(metadata map[string]interface{}) bool {
		return metadata["path"] == "/test" && metadata["client_ip"] == "192.168.1.1"
	})).Return()

	handler := rateLimitingMiddleware(mockRateLimiter, mockLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called when rate limited")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithLogEvent(http.MethodGet, "/test", "192.168.1.1", "test-456"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "test-456", w.Header().Get("X-Request-ID"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "rate limit exceeded", response["error"])

	mockRateLimiter.AssertExpectations(t)
	mockLogger.AssertExpectations(t)
}

func TestRateLimitingMiddleware_NoLogEventInContext(t *testing.T) {
	mockRateLimiter := &httpMocks.MockRateLimiter{}
	mockRateLimiter.On("Allow", "172.16.0.9").Return(true)

	handler := rateLimitingMiddleware(mockRateLimiter, mocks.NewQuietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "172.16.0.9:5555"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockRateLimiter.AssertExpectations(t)
}

func TestRouteLabel(t *testing.T) {
	router := mux.NewRouter()
	var label string
	router.HandleFunc("/api/coins/{id}", func(w http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/coins/bitcoin", nil))
	assert.Equal(t, "/api/coins/{id}", label)

	assert.Equal(t, "unmatched", routeLabel(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xRealIP    string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "192.168.1.1", "", "10.0.0.1:80", "192.168.1.1"},
		{"forwarded chain", "10.0.0.1, 192.168.1.1, 172.16.0.1", "", "10.0.0.2:80", "10.0.0.1"},
		{"real ip", "", "203.0.113.7", "10.0.0.1:80", "203.0.113.7"},
		{"remote addr", "", "", "198.51.100.4:4321", "198.51.100.4"},
		{"remote addr without port", "", "", "198.51.100.4", "198.51.100.4"},
		{"ipv6", "", "", "[2001:db8::1]:8080", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestResponseWriter_CapturesStatus(t *testing.T) {
	w := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	assert.Equal(t, http.StatusOK, wrapped.statusCode)
	wrapped.WriteHeader(http.StatusBadGateway)
	assert.Equal(t, http.StatusBadGateway, wrapped.statusCode)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
