package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/config"
	"github.com/Dosada05/club-challenges/db"
	"github.com/Dosada05/club-challenges/handlers"
	"github.com/Dosada05/club-challenges/leaderboard"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/routes"
	"github.com/Dosada05/club-challenges/services"
	"github.com/Dosada05/club-challenges/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, dbConn, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	if dbConn != nil {
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
	}

	// Хранилище изображений (Cloudflare R2) необязательно.
	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			SecretAccessKey: cfg.R2.SecretAccessKey,
			BucketName:      cfg.R2.BucketName,
			PublicBaseURL:   cfg.R2.PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("image uploads disabled, R2 is not configured")
	}

	// WebSocket Hub
	hub := leaderboard.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	m := metrics.New()

	svc := services.New(services.Dependencies{
		Store:     store,
		Tokens:    auth.NewTokenManager(cfg.JWTSecretKey, cfg.TokenTTL),
		Uploader:  uploader,
		Publisher: hub,
		Metrics:   m,
		Logger:    logger,
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.LoginRateLimit), cfg.LoginRateBurst)
	graphQLHandler := handlers.NewGraphQLHandler(svc, limiter, m, cfg.CookieSecure, logger)
	uploadHandler := handlers.NewUploadHandler(svc.Users, svc.Clubs, logger)
	webSocketHandler := handlers.NewWebSocketHandler(hub, svc.Challenges, cfg.CORSAllowedOrigins, logger)

	router := chi.NewRouter()
	routes.SetupRoutes(router, graphQLHandler, uploadHandler, webSocketHandler, routes.Options{
		Identify:       middleware.Identify(svc.Auth, cfg.CookieSecure, logger),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m,
	})
	logger.Info("routes configured", slog.Int("operations", len(graphQLHandler.Operations())))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	stopHub()
	logger.Info("application exited")
}
