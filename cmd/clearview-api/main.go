package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clearview/clearview_api/internal/api"
	"github.com/clearview/clearview_api/internal/config"
	"github.com/clearview/clearview_api/internal/enrich"
	"github.com/clearview/clearview_api/internal/llm"
	"github.com/clearview/clearview_api/internal/logging"
	"github.com/clearview/clearview_api/internal/service"
	"github.com/clearview/clearview_api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	// db might still be starting in docker
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		logger.Warn("waiting for db", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Fatal("could not connect to db", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.RunMigrations(ctx, db)
	cancel()
	if err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	completer, err := newCompleter(cfg, logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed, cache lookups will fall through", zap.Error(err))
		}
		cancel()
		completer = llm.NewCache(completer, rdb, cfg.LLMModel, cfg.CacheTTL, logger)
	}

	repo := store.NewPgStore(db, cfg.ReplaceEnrichments)
	enricher := enrich.New(completer, cfg.LLMTimeout, logger)
	svc := service.NewService(repo, enricher, logger)
	handler := api.NewHandler(svc, logger)

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestID(), api.Logger(logger), api.Metrics(), api.CORS(cfg.CORSAllowedOrigins))
	api.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// enrichment calls can take up to LLM_TIMEOUT
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening",
			zap.String("port", cfg.HTTPPort),
			zap.String("llm_provider", cfg.LLMProvider),
			zap.String("llm_model", cfg.LLMModel),
			zap.Bool("completion_cache", cfg.RedisAddr != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newCompleter(cfg *config.Config, logger *zap.Logger) (llm.Completer, error) {
	hc := &http.Client{Timeout: cfg.LLMTimeout}
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return llm.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMModel, hc, logger)
	default:
		return llm.NewChatClient(cfg.LLMBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel, hc, logger), nil
	}
}
