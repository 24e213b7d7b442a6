package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"telegram-chat-stats/internal/core/stats"
	"time"

	"github.com/mattn/go-runewidth"
)

// DateTimeLayout - формат дат в текстовом отчете.
const DateTimeLayout = "2006-01-02 15:04:05"

// entityColumnWidth - ширина колонки с типом сущности в гистограмме.
const entityColumnWidth = 15

// WriteText записывает текстовый отчет о статистике в w.
func WriteText(w io.Writer, cs *stats.ChatStats) error {
	var buf bytes.Buffer
	renderText(&buf, cs)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

// Text возвращает текстовый отчет строкой.
func Text(cs *stats.ChatStats) string {
	var buf bytes.Buffer
	renderText(&buf, cs)
	return buf.String()
}

func renderText(buf *bytes.Buffer, cs *stats.ChatStats) {
	combined := cs.Combined()

	buf.WriteString("📊 Chat Statistics Summary\n=========================\n")
	fmt.Fprintf(buf, "💬 Total messages: %d\n", cs.Messages+cs.ServiceMessages)
	fmt.Fprintf(buf, "📝 Regular messages: %d\n", cs.Messages)
	fmt.Fprintf(buf, "⚙️ Service messages: %d\n", cs.ServiceMessages)
	fmt.Fprintf(buf, "✏️ Edited messages: %d\n", cs.Edited)
	fmt.Fprintf(buf, "❤️ Total reactions: %d\n", combined.TotalReactions())

	fmt.Fprintf(buf, "\n📏 Combined:\n%s", UserBlock(combined, cs.Settings))

	if ranked := cs.Ranked(); len(ranked) > 0 {
		shown := min(max(cs.Settings.MaxParticipantsDisplayed, 0), len(ranked))

		fmt.Fprintf(buf, "\n👥 Top Participants (%d):\n", len(ranked))
		for i, p := range ranked[:shown] {
			fmt.Fprintf(buf, "%d. %s (%.0f%%)\n%s", i+1, p.Name, share(p.Stats, combined), UserBlock(p.Stats, cs.Settings))
		}
		if rest := len(ranked) - shown; rest > 0 {
			fmt.Fprintf(buf, "... and %d more\n", rest)
		}
	}

	if entities := cs.EntityHistogram(); cs.Settings.ShowEntityHistogram && len(entities) > 0 {
		fmt.Fprintf(buf, "\n🔤 Text Entity Types (%d):\n", len(entities))
		for _, e := range entities {
			fmt.Fprintf(buf, "- %s: %4d\n", runewidth.FillRight(e.Key, entityColumnWidth), e.Count)
		}
	}
}

// UserBlock форматирует статистику одного участника. Пустые списки не выводятся.
func UserBlock(s stats.UserStats, settings stats.Settings) string {
	if s.Count == 0 {
		return "- No messages\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- %d messages\n", s.Count)
	fmt.Fprintf(&sb, "- Average: %d chars\n", s.AvgChars())
	fmt.Fprintf(&sb, "- Longest: %d chars\n", s.MaxChars)
	if s.FirstMessage != nil {
		fmt.Fprintf(&sb, "- First message: %s\n", FormatTime(*s.FirstMessage))
	}
	if s.LastMessage != nil {
		fmt.Fprintf(&sb, "- Last message: %s\n", FormatTime(*s.LastMessage))
	}

	if reactions := s.TopReactions(); len(reactions) > 0 {
		items := make([]string, 0, len(reactions))
		for _, r := range reactions {
			items = append(items, fmt.Sprintf("%s×%d", r.Key, r.Count))
		}
		fmt.Fprintf(&sb, "- Reactions: %s\n", strings.Join(items, ", "))
	}

	if words := s.TopWords(settings.MaxWordsDisplayed); len(words) > 0 {
		items := make([]string, 0, len(words))
		for _, w := range words {
			items = append(items, fmt.Sprintf("%s (%d)", w.Key, w.Count))
		}
		fmt.Fprintf(&sb, "- Top words: %s\n", strings.Join(items, ", "))
	}

	return sb.String()
}

// FormatTime форматирует время в локальной зоне.
func FormatTime(t time.Time) string {
	return t.Local().Format(DateTimeLayout)
}

// share возвращает долю символов участника в процентах от общего числа.
func share(user, combined stats.UserStats) float64 {
	if combined.TotalChars == 0 {
		return 0
	}
	return 100 * float64(user.TotalChars) / float64(combined.TotalChars)
}
