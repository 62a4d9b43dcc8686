package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medcatalog-backend/config"
	"medcatalog-backend/internal/delivery/http/middleware"
	v1 "medcatalog-backend/internal/delivery/http/v1"
	"medcatalog-backend/internal/repository/mongodb"
	"medcatalog-backend/internal/usecase"
	"medcatalog-backend/pkg/cache"
	"medcatalog-backend/pkg/logger"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Initialize the catalog store
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := mongodb.NewDatabase(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to catalog store")
	}
	log.Info().Msg("Successfully connected to MongoDB")

	medicineRepo := mongodb.NewMedicineRepository(db)

	// Initialize the cache gateway. Without a configured backend the no-op
	// implementation is installed and the rest of the wiring is unchanged.
	cacheSvc := newCacheService(cfg)

	// Set up Router
	mux := http.NewServeMux()

	// Catalog Module
	catalogUC := usecase.NewCatalogUsecase(medicineRepo, cacheSvc, cfg)
	facetUC := usecase.NewFacetUsecase(medicineRepo, cacheSvc, cfg)
	catalogHandler := v1.NewCatalogHandler(catalogUC, facetUC, cfg)

	// Catalog (Public)
	mux.HandleFunc("GET /api/v1/medicines", catalogHandler.ListMedicines)
	mux.HandleFunc("GET /api/v1/medicines/filters", catalogHandler.GetFilterOptions)
	mux.HandleFunc("GET /api/v1/medicines/{id}", catalogHandler.GetMedicine)

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Initialize Rate Limiter with lifecycle management
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitPerSecond),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
	)

	// Apply CORS (with config injection), Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	log.Info().Msgf("Server starting on %s", addr)

	// Wait for interrupt signal via channel
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// newCacheService picks the cache backend from config.
func newCacheService(cfg *config.Config) cache.CacheService {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemory(cfg.CacheListTTL, time.Hour)
	case "redis":
		if cfg.RedisAddr == "" {
			return cache.NewNoop()
		}
		return cache.NewRedis(cache.RedisOptions{
			Addr:        cfg.RedisAddr,
			OpTimeout:   cfg.CacheOpTimeout,
			MaxAttempts: cfg.CacheConnectAttempts,
			BaseDelay:   cfg.CacheConnectDelay,
		})
	default:
		return cache.NewNoop()
	}
}
