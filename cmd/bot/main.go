package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"telegram-chat-stats/cmd/bot/config"
	"telegram-chat-stats/internal/bot"
	"telegram-chat-stats/internal/log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "bot_config.yml", "Path to the bot config file")
	flag.Parse()

	// Токен можно держать в .env
	_ = godotenv.Load()

	// Загрузка конфигурации бота
	cfg, err := config.LoadBotConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateFull(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Логгер с маскировкой токенов и идентификаторов пользователей
	logger, err := log.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, log.TelegramTokenRule, log.PeerIDRule)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := tgbotapi.SetLogger(log.NewTGBotAPIAdapter(logger, slog.LevelDebug)); err != nil {
		slog.Warn("failed to set tgbotapi logger", slog.String("error", err.Error()))
	}

	// Инициализация компонентов
	taskStore := bot.NewTaskStore()
	serverClient := bot.NewServerClient(cfg.Bot.BackendURL, time.Duration(cfg.Bot.HTTPTimeoutSeconds)*time.Second)

	b, err := bot.NewBot(cfg.Bot, serverClient, taskStore, logger.With(slog.String("component", "bot")))
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Start(ctx)
	}()

	<-ctx.Done()
	slog.Info("Shutting down bot...")
	<-done

	if active := taskStore.Len(); active > 0 {
		slog.Warn("Bot stopped with unfinished tasks", slog.Int("active_tasks", active))
	}
	slog.Info("Bot stopped gracefully")
}
