package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"nearby/internal/api"
	"nearby/internal/api/handlers"
	"nearby/internal/config"
	"nearby/internal/logger"
	"nearby/internal/services"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	app, err := newFirebaseApp(ctx, &cfg)
	if err != nil {
		zlog.Fatal("Failed to initialise firebase", zap.Error(err))
	}

	// Initialize store
	store, err := openStore(ctx, &cfg, app)
	if err != nil {
		zlog.Fatal("Failed to open location store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	zlog.Info("Location store ready", zap.String("driver", cfg.Store.Driver))

	verifier, err := newVerifier(ctx, &cfg, app)
	if err != nil {
		zlog.Fatal("Failed to initialise auth", zap.String("mode", cfg.Auth.Mode), zap.Error(err))
	}

	// Initialize services
	cache := services.NewProfileCache(cfg.Cache.Size, cfg.Cache.TTL)
	locationService := services.NewLocationService(store, cache, cfg.Geo.Precision)
	matchService := services.NewMatchService(store, locationService, services.MatchOptionsFromConfig(&cfg), zlog)

	// Setup router
	router := api.NewRouter(
		handlers.NewLocationHandler(locationService),
		handlers.NewMatchHandler(matchService),
		handlers.NewHealthHandler(store),
		verifier,
		zlog,
	)
	engine := gin.New()
	router.Setup(engine)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      c.Handler(engine),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr), zap.String("env", env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	zlog.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Error during shutdown", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		zlog.Error("Error closing location store", zap.Error(err))
	}

	zlog.Info("Server stopped gracefully")
}
