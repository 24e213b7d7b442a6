package log

import (
	"context"
	"log/slog"
	"regexp"
)

// Rule описывает одно правило маскировки: все совпадения Pattern заменяются на Replacement.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// TelegramTokenRule маскирует токены ботов вида bot<ID>:<token>
var TelegramTokenRule = Rule{
	Pattern:     regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`),
	Replacement: "bot***:***masked-token***",
}

// PeerIDRule маскирует идентификаторы пользователей и каналов из экспорта (user123, channel456)
var PeerIDRule = Rule{
	Pattern:     regexp.MustCompile(`\b(user|channel)\d{3,}\b`),
	Replacement: "${1}***",
}

// RedactingHandler - обертка для slog.Handler, которая маскирует секреты в сообщениях и атрибутах
type RedactingHandler struct {
	handler slog.Handler
	rules   []Rule
}

// NewRedactingHandler создает обработчик с маскировкой. Без правил маскируются токены ботов.
func NewRedactingHandler(handler slog.Handler, rules ...Rule) *RedactingHandler {
	if len(rules) == 0 {
		rules = []Rule{TelegramTokenRule}
	}
	return &RedactingHandler{
		handler: handler,
		rules:   rules,
	}
}

func (h *RedactingHandler) redact(text string) string {
	for _, rule := range h.rules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}
	return text
}

// Enabled реализует интерфейс slog.Handler
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	// Новая запись вместо изменения исходной: slog может переиспользовать оригинал.
	r := slog.NewRecord(record.Time, record.Level, h.redact(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.redactAttr(attr)
	}
	return &RedactingHandler{
		handler: h.handler.WithAttrs(masked),
		rules:   h.rules,
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		handler: h.handler.WithGroup(name),
		rules:   h.rules,
	}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: h.redactValue(a.Value)}
}

// redactValue рекурсивно маскирует значения атрибутов
func (h *RedactingHandler) redactValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.redact(value.String()))
	case slog.KindAny:
		// Ошибки часто содержат URL запроса вместе с токеном
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.redact(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = h.redactAttr(attr)
		}
		return slog.GroupValue(masked...)
	case slog.KindLogValuer:
		return h.redactValue(value.Resolve())
	default:
		return value
	}
}

// NewMaskedLogger создает slog.Logger с маскировкой по правилам
func NewMaskedLogger(handler slog.Handler, rules ...Rule) *slog.Logger {
	return slog.New(NewRedactingHandler(handler, rules...))
}
