package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestorerp/notas-bfa-go/internal/config"
	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/handler"
	"github.com/gestorerp/notas-bfa-go/internal/infra/cache"
	"github.com/gestorerp/notas-bfa-go/internal/infra/draftstore"
	"github.com/gestorerp/notas-bfa-go/internal/infra/erp"
	"github.com/gestorerp/notas-bfa-go/internal/infra/observability"
	"github.com/gestorerp/notas-bfa-go/internal/infra/resilience"
	"github.com/gestorerp/notas-bfa-go/internal/port"
	"github.com/gestorerp/notas-bfa-go/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("erp_base_url", cfg.ERPBaseURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("draft_ttl", cfg.DraftTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_imports_in_flight", cfg.MaxImportsInVoo),
		zap.Bool("redis_drafts", cfg.RedisURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "notas-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	fornecedoresCache := cache.New[[]domain.Fornecedor](cfg.CacheTTL)
	produtosCache := cache.New[[]domain.Produto](cfg.CacheTTL)
	gruposCache := cache.New[[]domain.Grupo](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker(cfg.CircuitBreakerKey)
	importBulkhead := resilience.NewBulkhead(cfg.MaxImportsInVoo)

	// --- ERP client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	importClient := &http.Client{Timeout: cfg.ImportTimeout}
	erpClient := erp.NewClient(httpClient, importClient, cfg.ERPBaseURL, cfg.ERPAPIKey, cb, resilienceCfg, logger)

	// --- Draft store ---
	var drafts port.DraftStore
	if cfg.RedisURL != "" {
		redisDrafts, err := draftstore.NewRedis(cfg.RedisURL, cfg.DraftTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		drafts = redisDrafts
		logger.Info("using Redis draft store")
	} else {
		drafts = draftstore.NewMemory(cfg.DraftTTL)
		logger.Info("using in-memory draft store")
	}

	// --- Services ---
	intakeSvc := service.NewIntake(
		drafts,
		erpClient,
		erpClient,
		fornecedoresCache,
		produtosCache,
		gruposCache,
		importBulkhead,
		service.Limites{
			Fornecedores: cfg.LimiteFornecedores,
			Produtos:     cfg.LimiteProdutos,
			Grupos:       cfg.LimiteGrupos,
		},
		metrics,
		logger,
	)
	sessionSvc := service.NewSession(cfg.JWTSecret)

	// --- Router ---
	router := handler.NewRouter(intakeSvc, sessionSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
