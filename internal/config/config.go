package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// ERP backend
	ERPBaseURL string
	ERPAPIKey  string

	// HTTP client
	HTTPTimeout   time.Duration
	ImportTimeout time.Duration // XML import is slower than plain CRUD

	// Resilience
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxImportsInVoo   int // bulkhead: concurrent XML imports
	MaxConcurrency    int
	CircuitBreakerKey string

	// Candidate lists (fixed page sizes; no further client-side paging)
	LimiteFornecedores int
	LimiteProdutos     int
	LimiteGrupos       int

	// Cache / drafts
	CacheTTL time.Duration
	DraftTTL time.Duration

	// Redis (optional draft store; empty = in-memory)
	RedisURL string

	// Observability
	OTLPEndpoint string

	// JWT session validation (tokens are issued by the ERP auth service)
	JWTSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ERPBaseURL: getEnv("ERP_BASE_URL", "http://localhost:8000"),
		ERPAPIKey:  getEnv("ERP_API_KEY", ""),

		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		ImportTimeout: getEnvDuration("IMPORT_TIMEOUT", 30*time.Second),

		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:    getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxImportsInVoo:   getEnvInt("MAX_IMPORTS_IN_FLIGHT", 4),
		MaxConcurrency:    getEnvInt("MAX_CONCURRENCY", 50),
		CircuitBreakerKey: getEnv("CIRCUIT_BREAKER_NAME", "erp-backend"),

		LimiteFornecedores: getEnvInt("LIMITE_FORNECEDORES", 2000),
		LimiteProdutos:     getEnvInt("LIMITE_PRODUTOS", 1000),
		LimiteGrupos:       getEnvInt("LIMITE_GRUPOS", 500),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		DraftTTL: getEnvDuration("DRAFT_TTL", 2*time.Hour),

		RedisURL: getEnv("REDIS_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret: getEnv("JWT_SECRET", "notas-default-dev-secret-change-me"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
