package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// AnalyzeRequest is the request body for analyzing a repository
type AnalyzeRequest struct {
	RepositoryURL string `json:"repository_url"`
	Branch        string `json:"branch,omitempty"`
	MaxFiles      int    `json:"max_files,omitempty"`
	Pattern       string `json:"pattern,omitempty"`
	UseCache      bool   `json:"use_cache,omitempty"`
	RefreshClone  bool   `json:"refresh_clone,omitempty"`
}

// LanguagesResponse lists the languages the server can parse
type LanguagesResponse struct {
	Languages  []string          `json:"languages"`
	Extensions map[string]string `json:"extensions"`
}

func (s *Server) listLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{
		Languages:  s.factory.ListSupportedLanguages(),
		Extensions: s.factory.SupportedExtensions(),
	})
}

func (s *Server) analyzeRepository(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis not available")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.RepositoryURL) == "" {
		writeError(w, http.StatusBadRequest, "repository_url is required")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("url", req.RepositoryURL).Msg("repository analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
