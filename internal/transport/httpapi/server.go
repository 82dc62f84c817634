// Package httpapi exposes the query pipeline over HTTP: a query
// endpoint, health, and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ragline/ragline/internal/domain"
	"github.com/ragline/ragline/internal/metrics"
	"github.com/ragline/ragline/internal/rag"
)

// QueryService is the consumer interface over the query pipeline.
type QueryService interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
}

// CheckFunc probes one dependency for the health endpoint.
type CheckFunc func(ctx context.Context) error

// Server is the HTTP API server.
type Server struct {
	query  QueryService
	checks map[string]CheckFunc
	logger *zap.Logger
}

// NewServer creates an HTTP API server. checks maps dependency name to
// its readiness probe.
func NewServer(query QueryService, checks map[string]CheckFunc, logger *zap.Logger) *Server {
	return &Server{query: query, checks: checks, logger: logger}
}

// Router assembles the chi router with the full middleware stack. An
// empty apiKeys slice disables authentication.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

type queryRequest struct {
	Question       string               `json:"question"`
	History        []domain.ChatMessage `json:"history,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	ScoreThreshold float32              `json:"score_threshold,omitempty"`
	Language       string               `json:"language,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "question is required")
		return
	}

	res, err := s.query.Query(r.Context(), rag.QueryRequest{
		Question:       req.Question,
		History:        req.History,
		Limit:          req.Limit,
		ScoreThreshold: req.ScoreThreshold,
		LanguageFilter: req.Language,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	results := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": results,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("query error", zap.Error(err))
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "embedding provider rate limited")
	case errors.Is(err, domain.ErrProvider):
		writeError(w, http.StatusBadGateway, "provider_error", "upstream provider error")
	case errors.Is(err, domain.ErrVectorStore):
		writeError(w, http.StatusBadGateway, "vector_store_error", "vector store error")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
