package stats

import (
	"path/filepath"
	"strings"
	"telegram-chat-stats/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(sec int64) *time.Time {
	t := time.Unix(sec, 0)
	return &t
}

func sampleUserStats() (UserStats, UserStats, UserStats) {
	var a, b, c UserStats
	a.AddMessage(at(100), "hello world", nil)
	a.AddMessage(at(300), "hello again", nil)
	a.AddReactions([]domain.Reaction{domain.EmojiReaction{Count: 2, Emoji: "👍"}})

	b.AddMessage(at(50), "goodbye world", nil)
	b.AddReactions([]domain.Reaction{
		domain.EmojiReaction{Count: 1, Emoji: "👍"},
		domain.CustomEmojiReaction{Count: 4, DocumentID: "doc1"},
	})

	c.AddMessage(nil, "a much longer message without a date", nil)
	return a, b, c
}

func TestCombine(t *testing.T) {
	a, b, c := sampleUserStats()

	t.Run("Ассоциативность", func(t *testing.T) {
		assert.Equal(t, Combine(a, Combine(b, c)), Combine(Combine(a, b), c))
	})

	t.Run("Коммутативность", func(t *testing.T) {
		assert.Equal(t, Combine(a, b), Combine(b, a))
		assert.Equal(t, Combine(a, c), Combine(c, a))
	})

	t.Run("Нейтральный элемент", func(t *testing.T) {
		assert.Equal(t, a, Combine(a, UserStats{}))
		assert.Equal(t, c, Combine(UserStats{}, c))
		assert.Equal(t, UserStats{}, Combine(UserStats{}, UserStats{}))
	})

	t.Run("Значения полей", func(t *testing.T) {
		got := Combine(a, b)
		assert.Equal(t, int64(3), got.Count)
		assert.Equal(t, a.TotalChars+b.TotalChars, got.TotalChars)
		assert.Equal(t, int64(13), got.MaxChars)
		assert.True(t, got.FirstMessage.Equal(time.Unix(50, 0)))
		assert.True(t, got.LastMessage.Equal(time.Unix(300, 0)))
		assert.Equal(t, map[string]int64{"hello": 2, "world": 2, "again": 1, "goodbye": 1}, got.Words)
		assert.Equal(t, map[string]int64{"👍": 3, "doc1": 4}, got.Reactions)
	})

	t.Run("Аргументы не изменяются", func(t *testing.T) {
		before := a.Words["hello"]
		combined := Combine(a, b)
		combined.Words["hello"] = 100
		assert.Equal(t, before, a.Words["hello"])
	})
}

func TestUserStats(t *testing.T) {
	t.Run("Средняя длина для пустой статистики равна нулю", func(t *testing.T) {
		assert.Equal(t, int64(0), UserStats{}.AvgChars())
	})

	t.Run("Средняя длина вычисляется целочисленным делением", func(t *testing.T) {
		s := UserStats{Count: 3, TotalChars: 10}
		assert.Equal(t, int64(3), s.AvgChars())
	})

	t.Run("Длина считается в символах, а не байтах", func(t *testing.T) {
		var s UserStats
		s.AddMessage(nil, "привет", nil)
		assert.Equal(t, int64(6), s.TotalChars)
		assert.Equal(t, int64(6), s.MaxChars)
	})

	t.Run("Частота слов без стоп-слов", func(t *testing.T) {
		var s UserStats
		s.AddMessage(nil, "Hello hello world", StopWords{})
		assert.Equal(t, map[string]int64{"hello": 2, "world": 1}, s.Words)
	})

	t.Run("Стоп-слова исключаются", func(t *testing.T) {
		var s UserStats
		s.AddMessage(nil, "The cat and THE dog", NewStopWords("the", "and"))
		assert.Equal(t, map[string]int64{"cat": 1, "dog": 1}, s.Words)
	})

	t.Run("Пустой текст не дает слов", func(t *testing.T) {
		var s UserStats
		s.AddMessage(nil, "", nil)
		assert.Nil(t, s.Words)
		assert.Equal(t, int64(1), s.Count)
	})

	t.Run("Сортировка слов и реакций", func(t *testing.T) {
		s := UserStats{
			Words:     map[string]int64{"b": 2, "a": 2, "c": 5, "d": 1},
			Reactions: map[string]int64{"❤": 1, "👍": 3},
		}
		assert.Equal(t, []Count{{"c", 5}, {"a", 2}}, s.TopWords(2))
		assert.Len(t, s.TopWords(10), 4)
		assert.Empty(t, s.TopWords(0))
		assert.Equal(t, []Count{{"👍", 3}, {"❤", 1}}, s.TopReactions())
		assert.Equal(t, int64(4), s.TotalReactions())
	})
}

func TestStopWords(t *testing.T) {
	t.Run("Встроенные наборы", func(t *testing.T) {
		ru, err := BuiltinStopWords("")
		assert.NoError(t, err)
		assert.True(t, ru.Contains("и"))

		en, err := BuiltinStopWords("EN")
		assert.NoError(t, err)
		assert.True(t, en.Contains("the"))

		none, err := BuiltinStopWords(StopWordsNone)
		assert.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Неизвестный язык", func(t *testing.T) {
		_, err := BuiltinStopWords("xx")
		assert.ErrorIs(t, err, ErrUnknownStopWordsLanguage)
	})

	t.Run("Разбор списка с комментариями", func(t *testing.T) {
		sw, err := ParseStopWords(strings.NewReader("# header\nFoo\n\n  bar  # trailing\n"))
		assert.NoError(t, err)
		assert.Equal(t, NewStopWords("foo", "bar"), sw)
	})

	t.Run("Отсутствующий файл", func(t *testing.T) {
		_, err := LoadStopWords(filepath.Join(t.TempDir(), "missing.txt"))
		assert.Error(t, err)
	})

	t.Run("nil набор ничего не содержит", func(t *testing.T) {
		var sw StopWords
		assert.False(t, sw.Contains("x"))
	})
}
