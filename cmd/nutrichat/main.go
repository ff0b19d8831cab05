package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nutrisolve/nutrichat/internal/cache"
	"github.com/nutrisolve/nutrichat/internal/config"
	"github.com/nutrisolve/nutrichat/internal/dataset"
	"github.com/nutrisolve/nutrichat/internal/index"
	"github.com/nutrisolve/nutrichat/internal/limiter"
	logpkg "github.com/nutrisolve/nutrichat/internal/logger"
	"github.com/nutrisolve/nutrichat/internal/metrics"
	chiTransport "github.com/nutrisolve/nutrichat/internal/transport/chi"
	openaiGen "github.com/nutrisolve/nutrichat/internal/transport/openai"
	chatuc "github.com/nutrisolve/nutrichat/internal/usecase/chat"
	healthuc "github.com/nutrisolve/nutrichat/internal/usecase/health"
	recommenduc "github.com/nutrisolve/nutrichat/internal/usecase/recommend"
	"github.com/nutrisolve/nutrichat/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nutrichat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("dataset_path", cfg.Dataset.Path),
		zap.String("model", cfg.Generation.Model),
	)

	// Register chat pipeline metrics explicitly (no init())
	metrics.RegisterChatMetrics()

	// Load the food catalog and build the search index
	catalog, err := dataset.Load(cfg.Dataset.Path, cfg.Dataset.MaxRecords, logger)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	metrics.DatasetRecords.Set(float64(catalog.Len()))

	holder := index.NewHolder(index.Build(catalog.Records()))
	logger.Info("Search index built", zap.Int("records", catalog.Len()))

	// Response cache based on driver
	var (
		respCache   chatuc.Cache
		cachePinger healthuc.CachePinger
	)
	switch cfg.Cache.Driver {
	case "redis":
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
			TTL:      time.Duration(cfg.Cache.TTLSec) * time.Second,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal("Failed to create redis cache", zap.Error(err))
		}
		defer redisCache.Close()
		respCache = redisCache
		cachePinger = redisCache
	case "memory":
		respCache = cache.NewMemory(
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			cfg.Cache.MaxEntries,
		)
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}

	// Generation slot limiter, strict FIFO
	lim := limiter.New(cfg.Limiter.Concurrency).
		WithQueueGauge(metrics.LimiterQueueDepth)

	generator := openaiGen.NewGenerator(&openaiGen.Config{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Instruction: cfg.Generation.SystemInstruction,
		Logger:      logger,
	})

	// Create use case services
	chatSvc := chatuc.New(holder, respCache, generator, lim).
		WithRetrieval(cfg.Retrieval.ContextTopN).
		WithTimeout(time.Duration(cfg.Generation.TimeoutSec) * time.Second).
		WithCacheCounter(metrics.ResponseCacheTotal)
	recommendSvc := recommenduc.New(catalog, holder)
	healthSvc := healthuc.New(generator, catalog, cachePinger)

	server := chiTransport.NewServer(chatSvc, recommendSvc, healthSvc, holder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
