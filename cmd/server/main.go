// Package main is the entry point for the swap route analyzer service, which
// scores, ranks and explains candidate token-swap routes for clients choosing
// between quotes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/swap-route-analyzer/internal/config"
	"github.com/yourorg/swap-route-analyzer/internal/engine"
	"github.com/yourorg/swap-route-analyzer/internal/export"
	"github.com/yourorg/swap-route-analyzer/internal/fetch"
	"github.com/yourorg/swap-route-analyzer/internal/guard"
	"github.com/yourorg/swap-route-analyzer/internal/model"
	"github.com/yourorg/swap-route-analyzer/internal/normalize"
	"github.com/yourorg/swap-route-analyzer/internal/otel"
	"github.com/yourorg/swap-route-analyzer/internal/scoring"
	"github.com/yourorg/swap-route-analyzer/internal/security"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server represents the route analyzer service instance
type Server struct {
	// Static service configuration
	cfg config.Config

	// Analysis engine holding the scoring configuration snapshot
	engine *engine.Engine

	// Quote provider for the quote-analyze path
	provider fetch.QuoteProvider

	// Guard protecting the quote-analyze path against bad feeds
	guard *guard.QuoteGuard

	// HTTP server instance
	server *http.Server

	// Metrics registry
	metrics *serverMetrics

	// Optional response signing
	signer *security.ResponseSigner

	// Optional analysis export
	exporter *export.Exporter

	// Rate limiter applied to analysis endpoints
	rateLimit *rate.Limiter

	// Routes from the most recent analysis, addressable by ID for /compare
	mu         sync.RWMutex
	lastRoutes map[string]model.Route
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	routesRanked    prometheus.Gauge
	routesSkipped   prometheus.Gauge
	bestComposite   prometheus.Gauge
	guardState      prometheus.Gauge
	quoteErrors     prometheus.Counter
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "route_analyzer_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "route_analyzer_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		routesRanked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "route_analyzer_routes_ranked",
				Help: "Number of routes ranked in the last analysis",
			},
		),
		routesSkipped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "route_analyzer_routes_skipped",
				Help: "Number of routes rejected in the last analysis",
			},
		),
		bestComposite: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "route_analyzer_best_composite_score",
				Help: "Composite score of the top-ranked route in the last analysis",
			},
		),
		guardState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "route_analyzer_quote_guard_state",
				Help: "Quote guard state (0=closed, 1=open, 2=half-open)",
			},
		),
		quoteErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "route_analyzer_quote_errors_total",
				Help: "Total number of quote feed errors",
			},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.routesRanked,
		m.routesSkipped,
		m.bestComposite,
		m.guardState,
		m.quoteErrors,
	)

	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}

	shutdownTracer := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracer()

	server, err := NewServer(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize server: %v", err)
	}
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// NewServer creates a new server instance around the analysis engine
func NewServer(cfg config.Config) (*Server, error) {
	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, err
	}

	providerName := "jupiter"
	if cfg.DemoMode {
		providerName = "demo"
	}

	s := &Server{
		cfg:        cfg,
		engine:     eng,
		provider:   fetch.NewProvider(providerName, cfg.QuoteURL),
		metrics:    registerMetrics(),
		lastRoutes: make(map[string]model.Route),
	}

	guardThresholds := guard.Thresholds{
		MaxImpactPct:   cfg.GuardMaxImpactPct,
		MinCandidates:  cfg.GuardMinCandidates,
		MaxOutputSwing: cfg.GuardMaxOutputSwing,
	}
	s.guard = guard.New(guardThresholds).
		WithResetDelay(cfg.GuardResetDelay).
		WithTripCallback(func(reason string, candidates []model.RawRoute) {
			s.metrics.guardState.Set(float64(guard.StateOpen))
		})

	s.rateLimit = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	logrus.Infof("Rate limiting initialized: %v req/s, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)

	if cfg.SigningEnabled {
		signer, err := security.NewResponseSigner(security.SignerOptions{
			Enabled:           true,
			SignatureValidity: cfg.SignatureValidity,
		})
		if err != nil {
			logrus.Warnf("Failed to initialize response signer: %v", err)
		} else {
			s.signer = signer
		}
	}

	if cfg.ExportEnabled {
		s.exporter = export.New(export.Config{
			Enabled:        true,
			BatchSize:      cfg.ExportBatchSize,
			ExportInterval: cfg.ExportInterval,
			WebhookURL:     cfg.ExportWebhookURL,
			WebhookAPIKey:  cfg.ExportWebhookAPIKey,
		})
	}

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"default_profile": cfg.DefaultProfile,
		"demo_mode":       cfg.DemoMode,
		"quote_url":       cfg.QuoteURL,
		"signing":         s.signer != nil,
		"export":          s.exporter != nil,
	}).Info("Server initialized")

	return s, nil
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/compare", s.handleCompare)
	mux.HandleFunc("/quote-analyze", s.handleQuoteAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/guard", s.handleGuardStatus)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.exporter != nil {
		s.exporter.Stop()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// AnalyzeResponse is the envelope returned by the analysis endpoints.
type AnalyzeResponse struct {
	StatusCode int                    `json:"statusCode"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data"`
	Error      string                 `json:"error,omitempty"`
}

// handleAnalyze scores and ranks a client-submitted candidate batch
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "analyze"

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rateLimit.Allow() {
		s.errorResponse(w, endpoint, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req engine.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	ctx, span := otel.Tracer().Start(ctx, "analyze")
	defer span.End()

	result, err := s.engine.Analyze(ctx, req)
	if err != nil {
		otel.RecordError(ctx, err)
		s.analysisError(w, endpoint, err)
		return
	}

	s.rememberRoutes(result.Routes)

	s.metrics.routesRanked.Set(float64(len(result.Routes)))
	s.metrics.routesSkipped.Set(float64(len(result.Skipped)))
	s.metrics.bestComposite.Set(result.Summary.BestComposite)

	if s.exporter != nil {
		s.exporter.Add(result.Summary)
	}

	s.writeResult(w, endpoint, start, map[string]interface{}{
		"routes":  result.Routes,
		"skipped": result.Skipped,
		"profile": result.Profile,
		"summary": result.Summary,
	})
}

// CompareRequest identifies two routes to compare. IDs refer to the most
// recent analysis; alternatively both routes can be submitted inline.
type CompareRequest struct {
	RouteA  string                 `json:"routeA"`
	RouteB  string                 `json:"routeB"`
	Routes  []model.RawRoute       `json:"routes,omitempty"`
	Profile string                 `json:"profile,omitempty"`
	Weights *scoring.WeightProfile `json:"weights,omitempty"`
}

// handleCompare runs a pairwise comparison between two routes
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "compare"

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rateLimit.Allow() {
		s.errorResponse(w, endpoint, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RouteA == "" || req.RouteB == "" {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "routeA and routeB are required")
		return
	}

	routeA, routeB, err := s.resolveComparePair(req)
	if err != nil {
		s.errorResponse(w, endpoint, http.StatusNotFound, err.Error())
		return
	}

	result, err := s.engine.Compare(routeA, routeB, req.Profile, req.Weights)
	if err != nil {
		s.analysisError(w, endpoint, err)
		return
	}

	s.writeResult(w, endpoint, start, map[string]interface{}{
		"comparison": result,
	})
}

// resolveComparePair finds both routes either in the inline batch or in the
// cached output of the most recent analysis.
func (s *Server) resolveComparePair(req CompareRequest) (model.Route, model.Route, error) {
	var pool map[string]model.Route

	if len(req.Routes) > 0 {
		normalized, err := normalize.Routes(req.Routes)
		if err != nil {
			return model.Route{}, model.Route{}, err
		}
		pool = make(map[string]model.Route, len(normalized.Routes))
		for _, route := range normalized.Routes {
			pool[route.RouteID] = route
		}
	} else {
		s.mu.RLock()
		pool = s.lastRoutes
		s.mu.RUnlock()
	}

	routeA, ok := pool[req.RouteA]
	if !ok {
		return model.Route{}, model.Route{}, fmt.Errorf("route %q not found; submit it inline or analyze it first", req.RouteA)
	}
	routeB, ok := pool[req.RouteB]
	if !ok {
		return model.Route{}, model.Route{}, fmt.Errorf("route %q not found; submit it inline or analyze it first", req.RouteB)
	}
	return routeA, routeB, nil
}

// QuoteAnalyzeRequest asks the server to fetch candidates itself and analyze
// them in one round trip.
type QuoteAnalyzeRequest struct {
	InputMint   string                 `json:"inputMint"`
	OutputMint  string                 `json:"outputMint"`
	Amount      int64                  `json:"amount"`
	SlippageBps int                    `json:"slippageBps"`
	Profile     string                 `json:"profile,omitempty"`
	Weights     *scoring.WeightProfile `json:"weights,omitempty"`
}

// handleQuoteAnalyze fetches candidates from the quote provider, passes them
// through the guard and analyzes the surviving set
func (s *Server) handleQuoteAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "quote-analyze"

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.rateLimit.Allow() {
		s.errorResponse(w, endpoint, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var req QuoteAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		s.errorResponse(w, endpoint, http.StatusBadRequest, "amount must be positive")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	ctx, span := otel.Tracer().Start(ctx, "quote-analyze")
	defer span.End()

	candidates, err := s.provider.FetchCandidates(ctx, fetch.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		s.metrics.quoteErrors.Inc()
		otel.RecordError(ctx, err)
		s.errorResponse(w, endpoint, http.StatusBadGateway, fmt.Sprintf("Error fetching quotes: %v", err))
		return
	}

	if err := s.guard.Check(candidates); err != nil {
		logrus.Warnf("Quote guard rejected batch: %v", err)
		s.metrics.guardState.Set(float64(s.guard.GetState()))

		lastGood := s.guard.LastGoodCandidates()
		if len(lastGood) == 0 {
			s.errorResponse(w, endpoint, http.StatusServiceUnavailable, fmt.Sprintf("Quote feed unavailable: %v", err))
			return
		}
		logrus.Info("Using last known good candidate set")
		candidates = lastGood
	} else {
		s.metrics.guardState.Set(float64(s.guard.GetState()))
	}

	result, err := s.engine.Analyze(ctx, engine.AnalysisRequest{
		Routes:  candidates,
		Profile: req.Profile,
		Weights: req.Weights,
	})
	if err != nil {
		otel.RecordError(ctx, err)
		s.analysisError(w, endpoint, err)
		return
	}

	s.rememberRoutes(result.Routes)

	s.metrics.routesRanked.Set(float64(len(result.Routes)))
	s.metrics.routesSkipped.Set(float64(len(result.Skipped)))
	s.metrics.bestComposite.Set(result.Summary.BestComposite)

	if s.exporter != nil {
		s.exporter.Add(result.Summary)
	}

	s.writeResult(w, endpoint, start, map[string]interface{}{
		"routes":  result.Routes,
		"skipped": result.Skipped,
		"profile": result.Profile,
		"summary": result.Summary,
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "OK",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cached := len(s.lastRoutes)
	s.mu.RUnlock()

	status := map[string]interface{}{
		"status":        "operational",
		"uptime":        time.Since(startTime).String(),
		"version":       "1.0.0",
		"guard_state":   s.guard.GetState(),
		"cached_routes": cached,
		"configuration": map[string]interface{}{
			"default_profile": s.cfg.DefaultProfile,
			"demo_mode":       s.cfg.DemoMode,
			"signing":         s.signer != nil,
		},
	}

	if s.signer != nil {
		status["public_key"] = s.signer.GetPublicKey()
	}
	if s.exporter != nil {
		status["exporter"] = s.exporter.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleGuardStatus allows viewing and resetting the quote guard
func (s *Server) handleGuardStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"state": s.guard.GetState(),
	}

	if r.Method == http.MethodPost {
		if r.URL.Query().Get("action") == "reset" {
			s.guard.Reset()
			s.metrics.guardState.Set(float64(guard.StateClosed))
			response["state"] = s.guard.GetState()
			response["message"] = "Quote guard reset"
		}
	}

	if lastGood := s.guard.LastGoodCandidates(); lastGood != nil {
		response["last_good_candidate_count"] = len(lastGood)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeResult sends a successful analysis envelope, signing it when enabled.
func (s *Server) writeResult(w http.ResponseWriter, endpoint string, start time.Time, data map[string]interface{}) {
	data["latencyMs"] = time.Since(start).Milliseconds()

	response := AnalyzeResponse{
		StatusCode: http.StatusOK,
		Status:     "success",
		Data:       data,
	}

	s.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	s.metrics.requestCounter.WithLabelValues(endpoint, "success").Inc()

	var payload interface{} = response
	if s.signer != nil {
		signed, err := s.signer.Sign(response)
		if err != nil {
			logrus.Warnf("Failed to sign response: %v", err)
		} else {
			payload = signed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// analysisError maps engine errors onto HTTP status codes
func (s *Server) analysisError(w http.ResponseWriter, endpoint string, err error) {
	var emptyErr *normalize.EmptyRouteSetError
	var profileErr *scoring.InvalidWeightProfileError

	switch {
	case errors.As(err, &emptyErr):
		s.errorResponse(w, endpoint, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &profileErr):
		s.errorResponse(w, endpoint, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.errorResponse(w, endpoint, http.StatusGatewayTimeout, "Analysis timed out")
	default:
		s.errorResponse(w, endpoint, http.StatusInternalServerError, err.Error())
	}
}

// errorResponse returns a formatted error envelope
func (s *Server) errorResponse(w http.ResponseWriter, endpoint string, statusCode int, errorMsg string) {
	logrus.Warn(errorMsg)

	s.metrics.requestCounter.WithLabelValues(endpoint, "error").Inc()

	response := AnalyzeResponse{
		StatusCode: statusCode,
		Status:     "error",
		Error:      errorMsg,
		Data:       map[string]interface{}{"error": errorMsg},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// rememberRoutes caches the routes of the latest analysis so /compare can
// reference them by ID.
func (s *Server) rememberRoutes(ranked []model.RankedRoute) {
	cache := make(map[string]model.Route, len(ranked))
	for _, r := range ranked {
		cache[r.Route.RouteID] = r.Route
	}
	s.mu.Lock()
	s.lastRoutes = cache
	s.mu.Unlock()
}
