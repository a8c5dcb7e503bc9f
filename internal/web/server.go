package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/property-insights/internal/metrics"
	"github.com/property-insights/internal/web/handlers"
	"github.com/property-insights/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	source     handlers.Source
	metrics    *metrics.Metrics
	limiter    *middleware.RateLimiter
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance serving source; m may be nil
func NewServer(config *Config, source handlers.Source, m *metrics.Metrics) *Server {
	server := &Server{
		config:  config,
		source:  source,
		metrics: m,
	}
	if config.RateLimit > 0 {
		server.limiter = middleware.NewRateLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return server
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	apiHandler := &handlers.APIHandler{Source: s.source}
	mapsHandler := &handlers.MapsHandler{Source: s.source}
	recordsHandler := &handlers.RecordsHandler{Source: s.source}
	searchHandler := &handlers.SearchHandler{Source: s.source}
	exportHandler := &handlers.ExportHandler{Source: s.source}
	realtimeHandler := &handlers.RealtimeHandler{Source: s.source, Interval: s.config.PollInterval}

	s.router.HandleFunc("/healthz", apiHandler.Health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// Core data endpoints
	api.HandleFunc("/properties", apiHandler.ListProperties).Methods("GET")
	api.HandleFunc("/properties/geojson", mapsHandler.GetGeoJSON).Methods("GET")
	api.HandleFunc("/properties/{row:[0-9]+}", recordsHandler.GetProperty).Methods("GET")

	// Aggregates
	api.HandleFunc("/kpis", apiHandler.GetKPIs).Methods("GET")
	api.HandleFunc("/zips", apiHandler.ListZips).Methods("GET")
	api.HandleFunc("/report", apiHandler.GetReport).Methods("GET")
	api.HandleFunc("/stats/viewport", mapsHandler.GetViewportStats).Methods("GET")

	api.HandleFunc("/search/zips", searchHandler.SearchZips).Methods("GET")
	api.HandleFunc("/export", exportHandler.ExportData).Methods("GET")
	api.HandleFunc("/updates/stream", realtimeHandler.SSEUpdates).Methods("GET")

	// CORS preflight; the CORS middleware answers it
	api.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Apply middleware
	var observer middleware.Observer
	if s.metrics != nil {
		observer = s.metrics
	}
	s.router.Use(middleware.RequestLogging(observer))
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.SecureHeaders())
	if s.limiter != nil {
		api.Use(middleware.RateLimit(s.limiter))
	}
	api.Use(middleware.Authentication(s.config.APIKey))
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	if s.limiter != nil {
		go s.cleanupLimiter()
	}

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}

func (s *Server) cleanupLimiter() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		s.limiter.Cleanup()
	}
}
