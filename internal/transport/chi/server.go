// Package chi exposes the HTTP API surface.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/logger"
	chatuc "github.com/nutrisolve/nutrichat/internal/usecase/chat"
	healthuc "github.com/nutrisolve/nutrichat/internal/usecase/health"
	recommenduc "github.com/nutrisolve/nutrichat/internal/usecase/recommend"
)

const maxSearchLimit = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires use case services to HTTP routes.
type Server struct {
	chat          *chatuc.Service
	recommend     *recommenduc.Service
	health        *healthuc.Service
	search        chatuc.Searcher
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	recommend *recommenduc.Service,
	health *healthuc.Service,
	search chatuc.Searcher,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:      chat,
		recommend: recommend,
		health:    health,
		search:    search,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyMessage, http.StatusBadRequest),
		sentinelHandler(domain.ErrUnknownGoal, http.StatusBadRequest),
		sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout),
		sentinelHandler(domain.ErrGenerationUpstream, http.StatusBadGateway),
		sentinelHandler(domain.ErrDatasetNotLoaded, http.StatusServiceUnavailable),
	}
	return s
}

// Routes registers all endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/recommendations", s.handleRecommendations)
	r.Get("/api/foods/search", s.handleFoodSearch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Cached    bool   `json:"cached"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.chat.Chat(r.Context(), req.Message)
	if err != nil {
		logger.FromContext(r.Context()).Warn("chat request failed",
			zap.Error(err),
			zap.Duration("elapsed", result.Elapsed),
		)
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:   true,
		Response:  result.Text,
		Cached:    result.FromCache,
		ElapsedMs: result.Elapsed.Milliseconds(),
	})
}

type recommendationsRequest struct {
	Goal         string   `json:"goal"`
	Restrictions []string `json:"restrictions"`
	Query        string   `json:"query"`
	Limit        int      `json:"limit"`
}

type recommendationItem struct {
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
}

type recommendationsResponse struct {
	Success         bool                 `json:"success"`
	Recommendations []recommendationItem `json:"recommendations"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	goal, err := domain.ParseGoal(req.Goal)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	recs, err := s.recommend.Recommend(
		domain.Profile{Goal: goal, Restrictions: req.Restrictions},
		req.Query,
		req.Limit,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]recommendationItem, len(recs))
	for i, rec := range recs {
		items[i] = recommendationItem{
			Description: rec.Food.Description,
			Category:    rec.Food.Category,
			Score:       rec.Score,
			Reason:      rec.Reason,
			Calories:    rec.Food.Nutrients.Calories,
			ProteinG:    rec.Food.Nutrients.ProteinG,
		}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Success: true, Recommendations: items})
}

type foodSearchItem struct {
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Score       float64 `json:"score"`
}

type foodSearchResponse struct {
	Success bool             `json:"success"`
	Results []foodSearchItem `json:"results"`
}

func (s *Server) handleFoodSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	matches := s.search.Search(query, limit)
	items := make([]foodSearchItem, len(matches))
	for i, m := range matches {
		items[i] = foodSearchItem{
			Description: m.Record.Description,
			Category:    m.Record.Category,
			Score:       m.Score,
		}
	}
	writeJSON(w, http.StatusOK, foodSearchResponse{Success: true, Results: items})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}
	writeJSON(w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

// handleDomainError maps sentinel errors to HTTP responses, defaulting to 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("Unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// sentinelHandler builds an errorHandler matching one sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, err.Error())
		return true
	}
}
