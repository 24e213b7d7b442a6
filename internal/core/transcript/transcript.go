package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"telegram-chat-stats/internal/core/replies"
	"telegram-chat-stats/internal/domain"
)

const (
	// DefaultReactorSeparator разделяет имена поставивших реакцию.
	DefaultReactorSeparator = ", "
	// LegacySeparator склеивает имена без разделителя, как в старых выгрузках.
	LegacySeparator = ""

	indent = "  ↳ "
)

type options struct {
	maxMessages      int
	reactorSeparator string
}

// Option настраивает построение расшифровки.
type Option func(*options)

// WithMaxMessages ограничивает число обрабатываемых записей. Служебные
// записи тоже учитываются. Ноль или отрицательное значение снимает ограничение.
func WithMaxMessages(n int) Option {
	return func(o *options) {
		o.maxMessages = n
	}
}

// WithReactorSeparator задает разделитель между именами в строке реакции.
func WithReactorSeparator(sep string) Option {
	return func(o *options) {
		o.reactorSeparator = sep
	}
}

type emitted struct {
	from string
	text string
}

// Write выводит расшифровку чата в w: по строке на сообщение и строки с
// пометками о редактировании, ответе и реакциях.
func Write(w io.Writer, chat *domain.ExportedChat, opts ...Option) error {
	o := options{reactorSeparator: DefaultReactorSeparator}
	for _, opt := range opts {
		opt(&o)
	}

	records := chat.Messages
	if o.maxMessages > 0 && o.maxMessages < len(records) {
		records = records[:o.maxMessages]
	}

	bw := bufio.NewWriter(w)
	seen := make(map[int64]emitted, len(records))

	for _, rec := range records {
		m, ok := rec.(*domain.RegularMessage)
		if !ok {
			continue
		}

		text := singleLine(domain.Flatten(m.Text))
		fmt.Fprintf(bw, "[%s] @%s: %s\n", CleanDate(m.Date), m.From, text)
		// Запоминается до поиска ответа: ответ самому себе цитирует себя
		seen[m.ID] = emitted{from: m.From, text: text}

		if m.Edited != "" {
			fmt.Fprintf(bw, "%s[edited] %s\n", indent, CleanDate(m.Edited))
		}

		if m.ReplyToMessageID != nil {
			replyID := *m.ReplyToMessageID
			if parent, found := seen[replyID]; found {
				fmt.Fprintf(bw, "%s[reply to msg#%d] @%s: %s\n", indent, replyID, parent.from, parent.text)
			} else {
				fmt.Fprintf(bw, "%s[reply to unknown msg#%d]\n", indent, replyID)
			}
		}

		for _, r := range m.Reactions {
			fmt.Fprintf(bw, "%s[reaction: %s by %s]\n", indent, reactionLabel(r), reactors(r, o.reactorSeparator))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// WriteChain выводит цепочку ответов, по строке на сообщение.
func WriteChain(w io.Writer, chain []replies.Entry) error {
	bw := bufio.NewWriter(w)
	for i, e := range chain {
		date := "unknown date"
		if e.Message.Date != nil {
			date = e.Message.Date.Local().Format("2006-01-02 15:04:05")
		}
		prefix := ""
		if i > 0 {
			prefix = strings.Repeat("  ", i-1) + indent
		}
		fmt.Fprintf(bw, "%s[%s] msg#%d @%s: %s\n", prefix, date, e.ID, e.Message.From, singleLine(e.Message.Text))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write reply chain: %w", err)
	}
	return nil
}

// CleanDate приводит дату экспорта к виду "2006-01-02 15:04:05".
func CleanDate(date string) string {
	return strings.TrimSuffix(strings.Replace(date, "T", " ", 1), "Z")
}

func singleLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func reactionLabel(r domain.Reaction) string {
	switch v := r.(type) {
	case domain.CustomEmojiReaction:
		return "custom_emoji:" + v.DocumentID
	default:
		return r.Key()
	}
}

func reactors(r domain.Reaction, sep string) string {
	recent := r.Reactors()
	names := make([]string, 0, len(recent))
	for _, rr := range recent {
		names = append(names, "@"+rr.From)
	}
	return strings.Join(names, sep)
}
