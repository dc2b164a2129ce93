package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moviestream/internal/domain"
	"moviestream/internal/domain/ports"
	"moviestream/internal/usecase"
)

type StartSessionUseCase interface {
	Execute(ctx context.Context, magnet string) (domain.SessionID, error)
}

type StopSessionUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) error
}

type GetStatusUseCase interface {
	Execute(ctx context.Context, id domain.SessionID) (domain.SessionInfo, error)
}

type ListSessionsUseCase interface {
	Execute(ctx context.Context) []domain.SessionSummary
}

type OpenStreamUseCase interface {
	Execute(ctx context.Context, id domain.SessionID, fileName string) (usecase.Stream, error)
}

type MetadataLookup interface {
	Lookup(ctx context.Context, title string) (domain.MovieInfo, error)
}

type Server struct {
	startSession   StartSessionUseCase
	stopSession    StopSessionUseCase
	getStatus      GetStatusUseCase
	listSessions   ListSessionsUseCase
	openStream     OpenStreamUseCase
	searcher       ports.Searcher
	metadata       MetadataLookup
	maxSessions    int
	rateLimitRPS   float64
	rateLimitBurst int
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithStopSession(uc StopSessionUseCase) ServerOption {
	return func(s *Server) {
		s.stopSession = uc
	}
}

func WithGetStatus(uc GetStatusUseCase) ServerOption {
	return func(s *Server) {
		s.getStatus = uc
	}
}

func WithListSessions(uc ListSessionsUseCase) ServerOption {
	return func(s *Server) {
		s.listSessions = uc
	}
}

func WithOpenStream(uc OpenStreamUseCase) ServerOption {
	return func(s *Server) {
		s.openStream = uc
	}
}

func WithSearcher(searcher ports.Searcher) ServerOption {
	return func(s *Server) {
		s.searcher = searcher
	}
}

func WithMetadataLookup(lookup MetadataLookup) ServerOption {
	return func(s *Server) {
		s.metadata = lookup
	}
}

// WithMaxSessions sets the advertised session capacity in health responses.
func WithMaxSessions(n int) ServerOption {
	return func(s *Server) {
		s.maxSessions = n
	}
}

// WithRateLimit sets the global token-bucket parameters for the rate-limit
// middleware. Non-positive values fall back to the defaults.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimitRPS = rps
		s.rateLimitBurst = burst
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(start StartSessionUseCase, opts ...ServerOption) *Server {
	s := &Server{startSession: start}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rateLimitRPS <= 0 {
		s.rateLimitRPS = 100
	}
	if s.rateLimitBurst <= 0 {
		s.rateLimitBurst = 200
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/magnet", s.handleMagnet)
	mux.HandleFunc("/api/metadata", s.handleMetadata)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "moviestream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateLimitRPS, s.rateLimitBurst, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastSessions pushes current session summaries to WebSocket clients.
func (s *Server) BroadcastSessions() {
	if s.listSessions == nil {
		return
	}
	s.wsHub.BroadcastSessions(s.listSessions.Execute(context.Background()))
}

// Close disconnects all WebSocket clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
