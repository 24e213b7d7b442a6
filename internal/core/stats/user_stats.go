package stats

import (
	"telegram-chat-stats/internal/domain"
	"time"
	"unicode/utf8"
)

// UserStats - счетчики по одному участнику.
// Нулевое значение является нейтральным элементом для Combine.
type UserStats struct {
	Count        int64            `json:"count"`
	TotalChars   int64            `json:"total_chars"`
	MaxChars     int64            `json:"max_chars"`
	FirstMessage *time.Time       `json:"first_message,omitempty"`
	LastMessage  *time.Time       `json:"last_message,omitempty"`
	Words        map[string]int64 `json:"words,omitempty"`
	Reactions    map[string]int64 `json:"reactions,omitempty"`
}

// AddMessage учитывает одно сообщение участника.
func (s *UserStats) AddMessage(date *time.Time, text string, stopWords StopWords) {
	chars := int64(utf8.RuneCountInString(text))
	s.Count++
	s.TotalChars += chars
	s.MaxChars = max(s.MaxChars, chars)
	s.FirstMessage = earliest(s.FirstMessage, date)
	s.LastMessage = latest(s.LastMessage, date)

	for _, word := range ExtractWords(text, stopWords) {
		if s.Words == nil {
			s.Words = make(map[string]int64)
		}
		s.Words[word]++
	}
}

// AddReactions учитывает реакции, полученные сообщением участника.
func (s *UserStats) AddReactions(reactions []domain.Reaction) {
	for _, r := range reactions {
		if s.Reactions == nil {
			s.Reactions = make(map[string]int64)
		}
		s.Reactions[r.Key()] += r.Total()
	}
}

// AvgChars возвращает среднюю длину сообщения (целочисленное деление).
func (s UserStats) AvgChars() int64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalChars / s.Count
}

// TotalReactions возвращает сумму по таблице реакций.
func (s UserStats) TotalReactions() int64 {
	var total int64
	for _, n := range s.Reactions {
		total += n
	}
	return total
}

// TopWords возвращает n самых частых слов.
func (s UserStats) TopWords(n int) []Count {
	words := sortedCounts(s.Words)
	if n < len(words) {
		words = words[:max(n, 0)]
	}
	return words
}

// TopReactions возвращает реакции по убыванию количества.
func (s UserStats) TopReactions() []Count {
	return sortedCounts(s.Reactions)
}

// Combine объединяет две статистики. Операция ассоциативна и коммутативна,
// аргументы не изменяются.
func Combine(a, b UserStats) UserStats {
	return UserStats{
		Count:        a.Count + b.Count,
		TotalChars:   a.TotalChars + b.TotalChars,
		MaxChars:     max(a.MaxChars, b.MaxChars),
		FirstMessage: earliest(a.FirstMessage, b.FirstMessage),
		LastMessage:  latest(a.LastMessage, b.LastMessage),
		Words:        mergeCounts(a.Words, b.Words),
		Reactions:    mergeCounts(a.Reactions, b.Reactions),
	}
}

// Clone возвращает независимую копию.
func (s UserStats) Clone() UserStats {
	return Combine(s, UserStats{})
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
