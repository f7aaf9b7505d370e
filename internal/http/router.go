package http

import (
	"context"
	"net/http"
	"time"

	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/ratelimit"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	handler *Handler
	logger  logger.Service
	server  *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	addr string,
	handler *Handler,
	logger logger.Service,
	rateLimiter ratelimit.Service,
	readTimeout, writeTimeout time.Duration,
) *Server {
	// Create Gorilla mux router
	router := mux.NewRouter()

	// Create server
	srv := &Server{
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}

	// Register middleware (order matters: logging -> rate limiting -> cors -> recovery)
	router.Use(loggingMiddleware(logger))
	router.Use(rateLimitingMiddleware(rateLimiter, logger))
	router.Use(corsMiddleware())
	router.Use(recoveryMiddleware(logger))

	// Register routes
	srv.registerRoutes(router)

	return srv
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes(router *mux.Router) {
	// Health check and Prometheus scrape endpoint
	router.HandleFunc("/health", s.handler.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/markets", s.handler.TopListings).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/coins/{id}", s.handler.CoinDetails).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/coins/{id}/history", s.handler.PriceHistory).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/search", s.handler.Search).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/lookup", s.handler.LookupCoin).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/recommendations", s.handler.Recommendations).Methods(http.MethodGet, http.MethodOptions)

	// Root handler
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"CryptoLens Market Data API","version":"` + apiVersion + `","endpoints":["/health","/metrics","/api/markets","/api/coins/{id}","/api/coins/{id}/history","/api/search","/api/lookup","/api/recommendations"]}`))
	}).Methods(http.MethodGet)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.LogInfo(context.Background(), logger.OpServerStart, "Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.LogInfo(ctx, logger.OpServerShutdown, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
