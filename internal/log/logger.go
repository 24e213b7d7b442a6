// Package log содержит настройку slog для сервисов приложения.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel преобразует уровень из конфигурации в slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("неизвестный уровень логирования: %q", level)
	}
}

// NewHandler создает text или json обработчик для w
func NewHandler(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("неизвестный формат логирования: %q", format)
	}
}

// NewLogger создает логгер по настройкам. Правила маскировки применяются, если заданы.
func NewLogger(w io.Writer, level, format string, rules ...Rule) (*slog.Logger, error) {
	handler, err := NewHandler(w, level, format)
	if err != nil {
		return nil, err
	}
	if len(rules) > 0 {
		return NewMaskedLogger(handler, rules...), nil
	}
	return slog.New(handler), nil
}
