package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
	// Level - уровень для сообщений библиотеки. Нулевое значение - Info.
	Level slog.Level
}

// NewTGBotAPIAdapter создает адаптер с отдельным атрибутом компонента
func NewTGBotAPIAdapter(logger *slog.Logger, level slog.Level) *TGBotAPIAdapter {
	return &TGBotAPIAdapter{
		Logger: logger.With("component", "tgbotapi"),
		Level:  level,
	}
}

// Println реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.Logger.Log(context.Background(), a.Level, strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.Logger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Log(context.Background(), a.Level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}
