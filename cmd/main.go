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

	"github.com/Dosada05/mahjong-scorebook/config"
	"github.com/Dosada05/mahjong-scorebook/db"
	"github.com/Dosada05/mahjong-scorebook/handlers"
	"github.com/Dosada05/mahjong-scorebook/repositories"
	api "github.com/Dosada05/mahjong-scorebook/routes"
	"github.com/Dosada05/mahjong-scorebook/services"
)

func main() {
	// Настройка логгера; уровень уточняется после загрузки конфигурации
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("database", cfg.DatabasePath),
		slog.String("log_level", cfg.LogLevel.String()),
	)

	// Открытие хранилища и миграции
	dbConn, err := db.Open(context.Background(), cfg.DatabasePath, 5*time.Second)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database ready", slog.Int("migrations", len(db.Migrations)))

	// Инициализация репозиториев
	clock := repositories.SystemClock
	gameRepo := repositories.NewSQLiteGameRepository(dbConn, clock)
	scoreRepo := repositories.NewSQLiteScoreRepository(dbConn, clock)
	chipRepo := repositories.NewSQLiteChipRepository(dbConn, clock)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	sessionService := services.NewSessionService(dbConn, gameRepo, scoreRepo, chipRepo, logger)
	shareService := services.NewShareService(dbConn, gameRepo, scoreRepo, chipRepo, clock, logger)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	gameHandler := handlers.NewGameHandler(sessionService)
	shareHandler := handlers.NewShareHandler(shareService)
	healthHandler := handlers.NewHealthHandler(dbConn)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			AllowedOrigins:  cfg.CORSAllowedOrigins,
			ImportRateLimit: cfg.ImportRateLimit,
			Logger:          logger,
		},
		gameHandler,
		shareHandler,
		healthHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
