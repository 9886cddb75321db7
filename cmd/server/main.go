package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"schoolregistry/docs" // swagger docs

	"schoolregistry/internal/auth"
	"schoolregistry/internal/cache"
	"schoolregistry/internal/config"
	"schoolregistry/internal/db"
	"schoolregistry/internal/handler"
	"schoolregistry/internal/repository"
	"schoolregistry/internal/router"
	"schoolregistry/internal/service"
)

//go:generate swag init --dir ../../ --generalInfo cmd/server/main.go --output ../../docs --outputTypes go --overridesFile ../../.swaggo

// @title School Registry API
// @version 1.0
// @description Session-authenticated school registry with role-based access.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session_token
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Env, cfg.LogLevel)

	gormDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database init", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("database migrate", "error", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		if cfg.SessionStore == config.StoreRedis {
			logger.Error("redis required for session store", "error", err)
			os.Exit(1)
		}
		logger.Warn("redis unavailable, stats cache disabled", "error", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	schoolRepo := repository.NewSchoolRepository(gormDB)

	var sessions auth.SessionStore
	switch cfg.SessionStore {
	case config.StoreRedis:
		sessions = auth.NewRedisSessionStore(cacheClient)
	default:
		sessionRepo := repository.NewSessionRepository(gormDB)
		sessions = sessionRepo
		if cfg.SessionSweepInterval > 0 {
			go auth.NewSweeper(sessionRepo, cfg.SessionSweepInterval, logger).Run(ctx)
		}
	}

	hasher := auth.NewHasher(cfg.BcryptCost, cfg.HashWorkers)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessions, hasher, cfg.SessionLifetime, logger)
	userService := service.NewUserService(userRepo, sessions, hasher, logger)
	schoolService := service.NewSchoolService(schoolRepo, cacheClient, cfg.StatsCacheTTL, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:     cfg.SessionCookieName,
		Secure:   cfg.CookieSecure,
		Lifetime: cfg.SessionLifetime,
	})
	userHandler := handler.NewUserHandler(userService)
	schoolHandler := handler.NewSchoolHandler(schoolService)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, logger, authService, authHandler, userHandler, schoolHandler)

	docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	logger.Info("swagger documentation available", "url", swaggerURL(cfg))

	serverErrors := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("http server starting", "addr", addr, "env", cfg.Env, "session_store", cfg.SessionStore)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrors:
		logger.Error("http server stopped unexpectedly", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("http server stopped")
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	switch {
	case host == "":
		return "http://localhost:" + cfg.ServerPort + "/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return host + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}

func newLogger(env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}
