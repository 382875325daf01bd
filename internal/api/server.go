// Package api exposes repository analysis over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/repolens-hq/repolens/internal/config"
	"github.com/repolens-hq/repolens/internal/parser"
)

// Server represents the API server
type Server struct {
	cfg      *config.Config
	factory  *parser.Factory
	analyzer RepoAnalyzer
	router   *chi.Mux
}

// RepoAnalyzer runs the clone-and-analyze pipeline for one repository URL.
// Kept narrow so handlers are testable without git.
type RepoAnalyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (interface{}, error)
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, factory *parser.Factory, analyzer RepoAnalyzer) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		factory:  factory,
		analyzer: analyzer,
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Minute))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/languages", s.listLanguages)
		r.Post("/analyze", s.analyzeRepository)
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
