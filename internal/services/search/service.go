package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"moviestream/internal/domain"
)

var (
	ErrInvalidQuery = errors.New("query is required")
	ErrNoProviders  = errors.New("no search providers configured")
)

// Provider is one torrent index backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

type cachedResults struct {
	results   []domain.SearchResult
	expiresAt time.Time
}

// Service fans a query out to all providers, merges and deduplicates the
// results by info hash, and ranks them by seeders. Responses are cached in
// memory and, when configured, in Redis.
type Service struct {
	providers []Provider
	timeout   time.Duration
	cacheTTL  time.Duration
	logger    *slog.Logger

	cacheMu sync.RWMutex
	cache   map[string]cachedResults

	redisCache *RedisCacheBackend
}

type ServiceOption func(*Service)

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	svc := &Service{
		providers: providers,
		timeout:   timeout,
		cacheTTL:  5 * time.Minute,
		cache:     make(map[string]cachedResults),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	key := normalizeQuery(query)
	if key == "" {
		return nil, ErrInvalidQuery
	}
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	if results, ok := s.lookupCache(ctx, key); ok {
		return results, nil
	}

	results, err := s.fanOut(ctx, key)
	if err != nil {
		return nil, err
	}

	s.storeCache(ctx, key, results)
	return results, nil
}

// fanOut queries every provider concurrently. A provider failure is logged
// and skipped; the search only fails when all providers fail.
func (s *Service) fanOut(ctx context.Context, query string) ([]domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var mu sync.Mutex
	var merged []domain.SearchResult
	var errCount int
	var lastErr error

	g, ctx := errgroup.WithContext(ctx)
	for _, provider := range s.providers {
		provider := provider
		g.Go(func() error {
			results, err := provider.Search(ctx, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("search provider failed",
					slog.String("provider", provider.Name()),
					slog.String("query", query),
					slog.Any("error", err),
				)
				errCount++
				lastErr = err
				return nil
			}
			merged = append(merged, results...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if errCount == len(s.providers) {
		return nil, lastErr
	}

	return rankResults(merged), nil
}

// rankResults deduplicates by info hash (keeping the best-seeded copy) and
// sorts by seeders descending.
func rankResults(results []domain.SearchResult) []domain.SearchResult {
	best := make(map[string]domain.SearchResult, len(results))
	for _, result := range results {
		existing, ok := best[result.InfoHash]
		if !ok || result.Seeders > existing.Seeders {
			best[result.InfoHash] = result
		}
	}
	out := make([]domain.SearchResult, 0, len(best))
	for _, result := range best {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seeders != out[j].Seeders {
			return out[i].Seeders > out[j].Seeders
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (s *Service) lookupCache(ctx context.Context, key string) ([]domain.SearchResult, bool) {
	s.cacheMu.RLock()
	entry, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.results, true
	}

	if s.redisCache != nil {
		results, found, err := s.redisCache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("redis cache read failed", slog.Any("error", err))
			return nil, false
		}
		if found {
			s.cacheMu.Lock()
			s.cache[key] = cachedResults{results: results, expiresAt: time.Now().Add(s.cacheTTL)}
			s.cacheMu.Unlock()
			return results, true
		}
	}
	return nil, false
}

func (s *Service) storeCache(ctx context.Context, key string, results []domain.SearchResult) {
	s.cacheMu.Lock()
	s.cache[key] = cachedResults{results: results, expiresAt: time.Now().Add(s.cacheTTL)}
	s.cacheMu.Unlock()

	if s.redisCache != nil {
		if err := s.redisCache.Set(ctx, key, results, s.cacheTTL); err != nil {
			s.logger.Debug("redis cache write failed", slog.Any("error", err))
		}
	}
}
