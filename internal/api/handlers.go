package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/copysmith/internal/analysis"
	"github.com/foxzi/copysmith/internal/models"
)

const maxBodyBytes = 1 << 20

// AnalyzeRequest is the request body for POST /analyze
type AnalyzeRequest struct {
	URL   string `json:"url"`
	Force bool   `json:"force,omitempty"`
}

// AnalyzeResponse is the response for POST /analyze
type AnalyzeResponse struct {
	Message string              `json:"message"`
	Reused  bool                `json:"reused"`
	Data    *models.LandingPage `json:"data"`
}

// RegenerateRequest is the request body for POST /regenerate
type RegenerateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
	URL   string `json:"url"`
}

// RegenerateResponse is the response for POST /regenerate
type RegenerateResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// LandingPageListResponse is the response for GET /landing-pages
type LandingPageListResponse struct {
	LandingPages []models.LandingPage `json:"landing_pages"`
	Total        int                  `json:"total"`
}

// UsageResponse is the response for GET /usage
type UsageResponse struct {
	Enabled     bool `json:"enabled"`
	HourlyCount int  `json:"hourly_count"`
	DailyCount  int  `json:"daily_count"`
	HourlyLimit int  `json:"hourly_limit,omitempty"`
	DailyLimit  int  `json:"daily_limit,omitempty"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleAnalyze handles POST /api/v1/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.service.Analyze(r.Context(), userID(r), req.URL, req.Force)
	if err != nil {
		s.sendServiceError(w, err, "Failed to analyze landing page")
		return
	}

	message := "Landing page analyzed successfully"
	if res.Reused {
		message = "Retrieved existing analysis"
	}
	s.sendJSON(w, http.StatusOK, AnalyzeResponse{
		Message: message,
		Reused:  res.Reused,
		Data:    res.Page,
	})
}

// handleRegenerate handles POST /api/v1/regenerate
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if !s.decode(w, r, &req) {
		return
	}

	value, err := s.service.Regenerate(r.Context(), userID(r), req.Field, req.Value, req.URL)
	if err != nil {
		s.sendServiceError(w, err, "Failed to regenerate content")
		return
	}

	s.sendJSON(w, http.StatusOK, RegenerateResponse{Field: req.Field, Value: value})
}

// handleLandingPageList handles GET /api/v1/landing-pages
func (s *Server) handleLandingPageList(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}

	pages, err := s.service.ListLandingPages(r.Context(), userID(r), models.LandingPageListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
	})
	if err != nil {
		s.sendServiceError(w, err, "Failed to list landing pages")
		return
	}
	if pages == nil {
		pages = []models.LandingPage{}
	}

	s.sendJSON(w, http.StatusOK, LandingPageListResponse{LandingPages: pages, Total: len(pages)})
}

// handleLandingPageGet handles GET /api/v1/landing-pages/{id}
func (s *Server) handleLandingPageGet(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetLandingPage(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, err, "Failed to get landing page")
		return
	}
	s.sendJSON(w, http.StatusOK, page)
}

// handleLandingPageDelete handles DELETE /api/v1/landing-pages/{id}
func (s *Server) handleLandingPageDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLandingPage(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.sendServiceError(w, err, "Failed to delete landing page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary handles GET /api/v1/analytics/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summary(r.Context(), userID(r))
	if err != nil {
		s.sendServiceError(w, err, "Failed to load analytics")
		return
	}
	s.sendJSON(w, http.StatusOK, summary)
}

// handleUsage handles GET /api/v1/usage
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.limiter == nil {
		s.sendJSON(w, http.StatusOK, UsageResponse{Enabled: false})
		return
	}

	stats, err := s.limiter.GetStats(r.Context(), userID(r))
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "Failed to get usage")
		return
	}

	resp := UsageResponse{
		Enabled:     true,
		HourlyCount: stats.HourlyCount,
		DailyCount:  stats.DailyCount,
	}
	if limit := s.limiter.UserLimit(); limit != nil {
		resp.HourlyLimit = limit.AnalysesPerHour
		resp.DailyLimit = limit.AnalysesPerDay
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// decode reads a JSON request body, answering 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		s.sendError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

// sendServiceError maps service errors to status codes. Upstream failures
// get the generic message so provider details stay in the logs.
func (s *Server) sendServiceError(w http.ResponseWriter, err error, failure string) {
	var rlErr *analysis.RateLimitError

	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrNotFound):
		s.sendError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, analysis.ErrAnalysisInProgress):
		s.sendError(w, http.StatusConflict, "Analysis of this URL is already in progress")
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rlErr.RetryAfter)))
		}
		s.sendError(w, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, context.DeadlineExceeded):
		s.sendError(w, http.StatusGatewayTimeout, failure)
	case errors.Is(err, analysis.ErrAnalysisFailed), errors.Is(err, analysis.ErrRegenerationFailed):
		s.sendError(w, http.StatusBadGateway, failure)
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, failure)
	}
}

// retryAfterSeconds rounds a wait up to whole seconds
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
