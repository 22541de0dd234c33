package httpapi

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/roaster/internal/domain/interfaces"
)

// loggingMiddleware logs all requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("request",
			interfaces.F("method", r.Method),
			interfaces.F("path", r.URL.Path),
			interfaces.F("status", rw.statusCode),
			interfaces.F("duration", time.Since(start).String()),
			interfaces.F("scan_id", rw.Header().Get("X-Scan-ID")))
	})
}

// recoverMiddleware turns a panic into a 500 instead of a dropped connection
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panicked",
					interfaces.F("path", r.URL.Path),
					interfaces.F("panic", fmt.Sprint(rec)))
				writeError(w, http.StatusInternalServerError, internalErrorMessage, s.debugDetail(fmt.Errorf("%v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows credentialed requests from the configured origins.
// A "*" entry admits any origin without credentials.
// Preflight requests are answered here and never reach the router.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(s.config.AllowedOrigins))
	for _, origin := range s.config.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(origin, "/")] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")
		if !allowAll && !allowed[origin] {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Expose-Headers", "X-Scan-ID, Retry-After")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			headers := r.Header.Get("Access-Control-Request-Headers")
			if headers == "" {
				headers = "Content-Type"
			}
			w.Header().Set("Access-Control-Allow-Headers", headers)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles per client address. A limiter backend failure lets the request through.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		decision, err := s.limiter.Allow(r.Context(), clientAddress(r))
		if err != nil {
			s.logger.Warn("rate limiter unavailable", interfaces.Err(err))
			next.ServeHTTP(w, r)
			return
		}

		if !decision.Allowed {
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded: %d per 1 minute", s.config.ScansPerMinute), nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientAddress is the remote IP without port
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
