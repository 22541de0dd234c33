package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/external-adapters/sysinfo"
)

// Messages returned to callers
const (
	scanFailedMessage    = "Failed to scan repository. Please try again."
	internalErrorMessage = "Internal server error"
	invalidBodyMessage   = "Invalid request body"
	healthStatus         = "roasting 🔥"
	tagline              = "Roasts your repository's security so you can fix it before attackers do"
)

// ScanRequest is the POST /scan body
type ScanRequest struct {
	RepoURL string `json:"repo_url"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error  string  `json:"error"`
	Detail *string `json:"detail"`
}

// HealthResponse is the GET /health body
type HealthResponse struct {
	Status       string         `json:"status"`
	Version      string         `json:"version"`
	AIConfigured bool           `json:"ai_configured"`
	System       *sysinfo.Stats `json:"system,omitempty"`
}

// RootResponse is the GET / body
type RootResponse struct {
	Message string `json:"message"`
	Tagline string `json:"tagline"`
	Health  string `json:"health"`
	Version string `json:"version"`
}

// handleRoot describes the service.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "Welcome to the Roaster API",
		Tagline: tagline,
		Health:  "/health",
		Version: s.config.Version,
	})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       healthStatus,
		Version:      s.config.Version,
		AIConfigured: s.config.NarrationEnabled,
	}

	if s.stats != nil {
		ctx := r.Context()
		if s.config.HealthStatsWindow > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.HealthStatsWindow)
			defer cancel()
		}
		stats, err := s.stats.Collect(ctx)
		if err != nil {
			s.logger.Debug("host stats unavailable", interfaces.Err(err))
		} else {
			resp.System = stats
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleScan clones, scans and roasts one repository.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, invalidBodyMessage, nil)
		return
	}

	if _, _, err := entities.ParseRepoURL(req.RepoURL); err != nil {
		writeError(w, http.StatusBadRequest, clientMessage(err), nil)
		return
	}

	ctx := r.Context()
	if s.config.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AnalysisTimeout)
		defer cancel()
	}

	result, err := s.roaster.PerformRoast(ctx, req.RepoURL)
	if err != nil {
		if entities.IsClientError(err) {
			writeError(w, http.StatusBadRequest, clientMessage(err), nil)
			return
		}
		s.logger.Error("scan failed",
			interfaces.F("repo_url", req.RepoURL),
			interfaces.Err(err))
		writeError(w, http.StatusInternalServerError, scanFailedMessage, s.debugDetail(err))
		return
	}

	if result.ScanID != "" {
		w.Header().Set("X-Scan-ID", result.ScanID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) debugDetail(err error) *string {
	if !s.config.Debug || err == nil {
		return nil
	}
	detail := err.Error()
	return &detail
}

// clientMessage is the caller-facing text of a 4xx error
func clientMessage(err error) string {
	var validationErr *entities.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, detail *string) {
	writeJSON(w, status, ErrorResponse{Error: message, Detail: detail})
}
