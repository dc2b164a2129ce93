package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"moviestream/internal/domain"
)

type createSessionRequest struct {
	Magnet string `json:"magnet"`
}

type createSessionResponse struct {
	SessionID domain.SessionID `json:"sessionId"`
}

type listSessionsResponse struct {
	Count    int                     `json:"count"`
	Sessions []domain.SessionSummary `json:"sessions"`
}

type stopSessionResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}

	id, err := s.startSession.Execute(r.Context(), req.Magnet)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.listSessions == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "list sessions use case not configured")
		return
	}
	sessions := s.listSessions.Execute(r.Context())
	writeJSON(w, http.StatusOK, listSessionsResponse{Count: len(sessions), Sessions: sessions})
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	id := domain.SessionID(parts[0])

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodDelete:
			s.handleStopSession(w, r, id)
		case http.MethodGet:
			s.handleSessionStatus(w, r, id)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		s.handleSessionStatus(w, r, id)
	case len(parts) == 2 && parts[1] == "video":
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		s.handleStreamVideo(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.getStatus == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "status use case not configured")
		return
	}
	info, err := s.getStatus.Execute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.stopSession == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "stop use case not configured")
		return
	}
	if err := s.stopSession.Execute(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopSessionResponse{Message: "session stopped"})
}

type healthResponse struct {
	Status         string             `json:"status"`
	ActiveSessions int                `json:"activeSessions"`
	MaxSessions    int                `json:"maxSessions,omitempty"`
	Sessions       []domain.SessionID `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Sessions: []domain.SessionID{}, MaxSessions: s.maxSessions}
	if s.listSessions != nil {
		summaries := s.listSessions.Execute(r.Context())
		resp.ActiveSessions = len(summaries)
		for _, summary := range summaries {
			resp.Sessions = append(resp.Sessions, summary.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
