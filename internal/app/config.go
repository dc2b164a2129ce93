package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	DataDir           string
	LogLevel          string
	LogFormat         string
	MaxSessions       int           // 0 = unlimited
	SessionIdleTime   time.Duration // auto-stop sessions idle longer than this; 0 = disabled
	DownloadRateLimit int64         // per-session download cap in bytes/sec; 0 = unlimited
	UploadRateLimit   int64         // per-session upload cap in bytes/sec; 0 = unlimited
	DisableSeeding    bool
	RateLimitRPS      int // sustained HTTP requests per second across all clients
	RateLimitBurst    int
	AllowedOrigins    []string
	RedisAddr         string // "" = redis search cache disabled
	SearchTimeout     time.Duration
	SearchCacheTTL    time.Duration
	OMDBAPIKey        string
	OMDBEndpoint      string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DataDir:           getEnv("DATA_DIR", "data"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MaxSessions:       int(getEnvInt64("MAX_SESSIONS", 0)),
		SessionIdleTime:   getEnvDuration("SESSION_IDLE_TIMEOUT", 0),
		DownloadRateLimit: getEnvInt64("DOWNLOAD_RATE_LIMIT_BYTES", 0),
		UploadRateLimit:   getEnvInt64("UPLOAD_RATE_LIMIT_BYTES", 0),
		DisableSeeding:    getEnvBool("DISABLE_SEEDING", false),
		RateLimitRPS:      int(getEnvInt64("HTTP_RATE_LIMIT_RPS", 100)),
		RateLimitBurst:    int(getEnvInt64("HTTP_RATE_LIMIT_BURST", 200)),
		AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "")),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		SearchTimeout:     getEnvDuration("SEARCH_TIMEOUT", 15*time.Second),
		SearchCacheTTL:    getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),
		OMDBAPIKey:        getEnv("OMDB_API_KEY", ""),
		OMDBEndpoint:      getEnv("OMDB_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
