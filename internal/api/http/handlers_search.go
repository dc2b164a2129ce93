package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"moviestream/internal/domain"
)

type searchResponse struct {
	Count   int                   `json:"count"`
	Results []domain.SearchResult `json:"results"`
}

type magnetRequest struct {
	MovieName string `json:"movieName"`
}

type magnetResponse struct {
	Title      string `json:"title"`
	MagnetLink string `json:"magnetLink"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.searcher == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter is required")
		return
	}

	results, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "torrent search failed")
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Count: len(results), Results: results})
}

// handleMagnet resolves a movie name to the best magnet link: the top search
// result by seeders.
func (s *Server) handleMagnet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.searcher == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search not configured")
		return
	}

	var req magnetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	name := strings.TrimSpace(req.MovieName)
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "movieName is required")
		return
	}

	results, err := s.searcher.Search(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "torrent search failed")
		return
	}
	if len(results) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no torrents found for query")
		return
	}
	top := results[0]
	writeJSON(w, http.StatusOK, magnetResponse{Title: top.Title, MagnetLink: top.MagnetLink})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if s.metadata == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "metadata lookup not configured")
		return
	}

	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query parameter title is required")
		return
	}

	info, err := s.metadata.Lookup(r.Context(), title)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "metadata lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
