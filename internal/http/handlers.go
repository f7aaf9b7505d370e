package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/models"
	"CryptoLens_MarketData/internal/recommendation"

	"github.com/gorilla/mux"
)

const apiVersion = "1.0.0"

// Handler contains the HTTP handlers for the API
type Handler struct {
	market      marketdata.Service
	recommender recommendation.Service
	logger      logger.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(
	market marketdata.Service,
	recommender recommendation.Service,
	logger logger.Service,
) *Handler {
	return &Handler{
		market:      market,
		recommender: recommender,
		logger:      logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// writeJSONResponse writes a JSON response with standard headers including X-Request-ID
func (h *Handler) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) error {
	logEvent := logger.GetLogEvent(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", logEvent.ProcessID)
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(data)
}

// TopListings handles GET /api/markets
func (h *Handler) TopListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := models.ListingsQuery{Currency: q.Get("currency")}
	var err error
	if query.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}
	if query.Page, err = intParam(q.Get("page"), 0); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid page", err.Error())
		return
	}
	if raw := q.Get("sparkline"); raw != "" {
		if query.Sparkline, err = strconv.ParseBool(raw); err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid sparkline", err.Error())
			return
		}
	}
	if ids := q.Get("ids"); ids != "" {
		query.IDs = strings.Split(ids, ",")
	}

	listings, err := h.market.TopListings(r.Context(), query)
	h.respond(w, r, logger.OpListings, "", listings, err)
}

// CoinDetails handles GET /api/coins/{id}
func (h *Handler) CoinDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "coin id is required", "")
		return
	}

	details, err := h.market.CoinDetails(r.Context(), id, r.URL.Query().Get("currency"))
	h.respond(w, r, logger.OpCoinDetails, id, details, err)
}

// PriceHistory handles GET /api/coins/{id}/history
func (h *Handler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "coin id is required", "")
		return
	}

	q := r.URL.Query()
	days, err := intParam(q.Get("days"), marketdata.DefaultHistoryDays)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid days", err.Error())
		return
	}

	history, err := h.market.PriceHistory(r.Context(), id, days, q.Get("currency"))
	h.respond(w, r, logger.OpPriceHistory, id, history, err)
}

// Search handles GET /api/search?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "query is required", "q must not be empty")
		return
	}

	coins, err := h.market.Search(r.Context(), query)
	h.respond(w, r, logger.OpSearch, query, coins, err)
}

// LookupCoin handles GET /api/lookup?symbol&name&currency
func (h *Handler) LookupCoin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol, name := q.Get("symbol"), q.Get("name")

	coin, err := h.market.LookupCoin(r.Context(), symbol, name, q.Get("currency"))
	target := symbol
	if target == "" {
		target = name
	}
	h.respond(w, r, logger.OpCoinLookup, target, coin, err)
}

// Recommendations handles GET /api/recommendations, forwarding the caller's
// bearer token to the recommender backend
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	result, err := h.recommender.Recommendations(r.Context(), bearerToken(r))
	h.respond(w, r, logger.OpRecommendations, "", result, err)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   apiVersion,
	}

	if err := h.writeJSONResponse(w, r, http.StatusOK, response); err != nil {
		h.logger.LogError(ctx, logger.OpHealthCheck, "", "Failed to encode health response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogInfo(ctx, logger.OpHealthCheck, "Health check performed successfully", nil)
}

// respond writes data on success or the mapped error response on failure
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, operation, target string, data interface{}, err error) {
	ctx := r.Context()

	if err != nil {
		statusCode := h.getStatusCodeForError(err)
		severity := models.LogSeverityMedium
		if statusCode < http.StatusInternalServerError {
			severity = models.LogSeverityLow
		}
		h.logger.LogError(ctx, operation, target, "Request failed", err, severity, map[string]interface{}{
			"status_code": statusCode,
		})
		h.writeErrorResponse(w, r, statusCode, errorLabel(statusCode), err.Error())
		return
	}

	if err := h.writeJSONResponse(w, r, http.StatusOK, data); err != nil {
		h.logger.LogError(ctx, operation, target, "Failed to encode response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogSuccess(ctx, operation, target, "Request served", nil)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, error, message string) {
	response := ErrorResponse{
		Error:     error,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	if err := h.writeJSONResponse(w, r, statusCode, response); err != nil {
		h.logger.LogError(r.Context(), "response_encoding", "", "Failed to encode error response", err, models.LogSeverityLow, nil)
	}
}

// getStatusCodeForError determines the appropriate HTTP status code for an error
func (h *Handler) getStatusCodeForError(err error) int {
	var upstream *models.UpstreamError
	switch {
	case errors.Is(err, models.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCoinNotFound):
		return http.StatusNotFound
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrFetchTimeout),
		errors.Is(err, models.ErrDispatchTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrMalformedResponse),
		errors.Is(err, models.ErrUpstreamStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorLabel(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusTooManyRequests:
		return "upstream rate limited"
	case http.StatusGatewayTimeout:
		return "upstream timeout"
	case http.StatusBadGateway:
		return "upstream failure"
	default:
		return "internal server error"
	}
}

// intParam parses an optional integer query parameter
func intParam(raw string, defaultValue int) (int, error) {
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}

// bearerToken returns the token of an "Authorization: Bearer" header, if any
func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
