package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	apihttp "moviestream/internal/api/http"
	"moviestream/internal/app"
	"moviestream/internal/metrics"
	"moviestream/internal/services/search"
	"moviestream/internal/services/session"
	"moviestream/internal/services/torrent/engine/anacrolix"
	"moviestream/internal/telemetry"
	"moviestream/internal/usecase"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "moviestream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "moviestream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("dataDir", cfg.DataDir),
		slog.Int("maxSessions", cfg.MaxSessions),
		slog.Duration("sessionIdleTimeout", cfg.SessionIdleTime),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("data dir create failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine := anacrolix.New(anacrolix.Config{
		DownloadRateLimit: cfg.DownloadRateLimit,
		UploadRateLimit:   cfg.UploadRateLimit,
		DisableSeeding:    cfg.DisableSeeding,
	})
	registry := session.NewRegistry()

	searchService := newSearchService(rootCtx, cfg, logger)

	startUC := usecase.StartSession{
		Engine:      engine,
		Registry:    registry,
		DataRoot:    cfg.DataDir,
		Logger:      logger,
		MaxSessions: cfg.MaxSessions,
	}
	stopUC := usecase.StopSession{Registry: registry, DataRoot: cfg.DataDir, Logger: logger}
	statusUC := usecase.GetStatus{Registry: registry}
	listUC := usecase.ListSessions{Registry: registry}
	streamUC := usecase.OpenStream{Registry: registry}

	if cfg.SessionIdleTime > 0 {
		reaper := usecase.IdleReaper{
			Registry: registry,
			Stop:     stopUC,
			Timeout:  cfg.SessionIdleTime,
			Logger:   logger,
		}
		go reaper.Run(rootCtx)
	}

	options := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithStopSession(stopUC),
		apihttp.WithGetStatus(statusUC),
		apihttp.WithListSessions(listUC),
		apihttp.WithOpenStream(streamUC),
		apihttp.WithSearcher(searchService),
		apihttp.WithMaxSessions(cfg.MaxSessions),
		apihttp.WithRateLimit(float64(cfg.RateLimitRPS), cfg.RateLimitBurst),
		apihttp.WithAllowedOrigins(cfg.AllowedOrigins),
	}
	if cfg.OMDBAPIKey != "" {
		omdb := search.NewOMDBClient(search.OMDBConfig{
			Endpoint: cfg.OMDBEndpoint,
			APIKey:   cfg.OMDBAPIKey,
			Client:   &http.Client{Timeout: 10 * time.Second},
		})
		options = append(options, apihttp.WithMetadataLookup(omdb))
	}

	handler := apihttp.NewServer(startUC, options...)

	// Periodically update Prometheus gauges and push session summaries to
	// WebSocket clients.
	go updateSessionMetrics(rootCtx, registry, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}

	// Stop every live session so engine handles release their directories.
	for _, sess := range registry.List() {
		if err := stopUC.Execute(context.Background(), sess.ID()); err != nil {
			logger.Warn("session stop on shutdown failed",
				slog.String("sessionId", string(sess.ID())),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.Info("server stopped")
}

func newSearchService(ctx context.Context, cfg app.Config, logger *slog.Logger) *search.Service {
	httpClient := &http.Client{Timeout: cfg.SearchTimeout}
	providers := []search.Provider{
		search.NewPirateBayProvider(search.PirateBayConfig{Client: httpClient}),
		search.NewYTSProvider(search.YTSConfig{Client: httpClient}),
	}

	opts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithCacheTTL(cfg.SearchCacheTTL),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backend := search.NewRedisCacheBackend(client)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := backend.Ping(pingCtx); err != nil {
			logger.Warn("redis unavailable, search cache is memory-only", slog.String("error", err.Error()))
		} else {
			opts = append(opts, search.WithRedisCache(backend))
		}
	}

	return search.NewService(providers, cfg.SearchTimeout, opts...)
}

func updateSessionMetrics(ctx context.Context, registry *session.Registry, handler *apihttp.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := registry.List()
			metrics.ActiveSessions.Set(float64(len(sessions)))
			var dlTotal, ulTotal, peersTotal int64
			for _, sess := range sessions {
				info := sess.Snapshot()
				dlTotal += info.DownloadSpeed
				ulTotal += info.UploadSpeed
				peersTotal += int64(info.Peers)
			}
			metrics.DownloadSpeedBytes.Set(float64(dlTotal))
			metrics.UploadSpeedBytes.Set(float64(ulTotal))
			metrics.PeersConnected.Set(float64(peersTotal))
			handler.BroadcastSessions()
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
