package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/core/services"
	applog "telegram-chat-stats/internal/log"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/ports"
	"telegram-chat-stats/internal/server"
	"telegram-chat-stats/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	configPath := flag.String("config", config.DefaultConfigFile, "Path to the YAML config file")
	flag.Parse()

	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Инициализация логгера
	logger, err := applog.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	stopWords, err := cfg.LoadStopWords()
	if err != nil {
		return fmt.Errorf("failed to load stop words: %w", err)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 3. Кэш результатов: на диске, если задан каталог, иначе в памяти
	var resultCache ports.ResultCache
	if cfg.Processing.CacheDir != "" {
		pebbleStore, err := cache.NewPebbleStore(cfg.Processing.CacheDir, logger)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer pebbleStore.Close()
		pebbleStore.StartCleanupTicker(appCtx, cfg.Server.CleanupInterval)
		resultCache = pebbleStore
		logger.Info("Using persistent cache", "dir", cfg.Processing.CacheDir)
	} else {
		memoryStore := cache.NewCacheStore()
		memoryStore.StartCleanupTicker(appCtx, cfg.Server.CleanupInterval)
		resultCache = memoryStore
	}

	// 4. Инициализация зависимостей
	analyzer := services.NewAnalysisService(
		services.WithPoolSize(cfg.Processing.PoolSize),
		services.WithTotalTimeout(cfg.Processing.TaskTimeout),
		services.WithSettings(cfg.StatsSettings()),
		services.WithStopWords(stopWords),
		services.WithLogger(logger.With("component", "analysis")),
	)
	uc := usecase.NewAnalyzeChatsUseCase(
		parser.NewJsonParser(),
		analyzer,
		resultCache,
		cfg.Processing.CacheTTL,
		logger,
		usecase.CacheParams(cfg.StatsSettings(), cfg.Stats.StopWords, cfg.Stats.StopWordsFile)...,
	)

	// 5. Создание HTTP-сервера
	srv, err := server.New(appCtx, cfg, uc, server.NewTaskStore(), logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		logger.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("Signal received, shutting down...")
	case <-serverDone:
		return errors.New("server stopped unexpectedly")
	}

	// Останавливаем тикеры очистки
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	logger.Info("Application exited gracefully")
	return nil
}
