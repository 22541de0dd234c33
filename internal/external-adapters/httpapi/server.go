// Package httpapi exposes the roast pipeline over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/external-adapters/ratelimit"
	"github.com/ochairo/roaster/internal/external-adapters/sysinfo"
)

// maxBodyBytes caps POST /scan request bodies
const maxBodyBytes = 1 << 20

// Roaster runs one roast for a repository URL
type Roaster interface {
	PerformRoast(ctx context.Context, url string) (*entities.ScanResult, error)
}

// StatsCollector reports host stats for /health
type StatsCollector interface {
	Collect(ctx context.Context) (*sysinfo.Stats, error)
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	AllowedOrigins    []string
	AnalysisTimeout   time.Duration
	ScansPerMinute    int
	Debug             bool
	Version           string
	NarrationEnabled  bool
	HealthStatsWindow time.Duration
}

// DefaultConfig returns the default server configuration.
// WriteTimeout must outlast AnalysisTimeout or long roasts are cut off mid-response.
func DefaultConfig() Config {
	return Config{
		Host:              "127.0.0.1",
		Port:              8000,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      330 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		AnalysisTimeout:   300 * time.Second,
		ScansPerMinute:    5,
		Version:           "dev",
		HealthStatsWindow: 2 * time.Second,
	}
}

// Server is the roaster HTTP server.
type Server struct {
	config     Config
	roaster    Roaster
	limiter    ratelimit.Limiter
	stats      StatsCollector
	logger     interfaces.Logger
	httpServer *http.Server
	listener   net.Listener

	mu      sync.RWMutex
	running bool
}

// Option customizes a Server
type Option func(*Server)

// WithRateLimiter throttles POST /scan per client address
func WithRateLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithStats adds host stats to /health
func WithStats(stats StatsCollector) Option {
	return func(s *Server) {
		s.stats = stats
	}
}

// New creates a new server with the given configuration.
func New(config Config, roaster Roaster, logger interfaces.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	s := &Server{
		config:  config,
		roaster: roaster,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.recoverMiddleware(s.loggingMiddleware(s.corsMiddleware(mux)))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("server listening", interfaces.F("addr", listener.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", interfaces.Err(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the actual address the server is listening on.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// registerRoutes registers all API routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /scan", s.rateLimitMiddleware(http.HandlerFunc(s.handleScan)))
}
