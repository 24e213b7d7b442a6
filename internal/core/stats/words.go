package stats

import (
	"cmp"
	"slices"
	"strings"
)

// ExtractWords приводит текст к нижнему регистру, разбивает по пробельным
// символам и отбрасывает стоп-слова.
func ExtractWords(text string, stopWords StopWords) []string {
	tokens := strings.Fields(strings.ToLower(text))
	words := tokens[:0]
	for _, token := range tokens {
		if !stopWords.Contains(token) {
			words = append(words, token)
		}
	}
	return words
}

// Count - пара ключ/количество для отсортированных таблиц.
type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// sortedCounts сортирует таблицу по убыванию количества, при равенстве по ключу.
func sortedCounts(table map[string]int64) []Count {
	counts := make([]Count, 0, len(table))
	for k, v := range table {
		counts = append(counts, Count{Key: k, Count: v})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return counts
}

// mergeCounts возвращает новую таблицу с суммами по ключам.
// Для двух пустых таблиц возвращает nil.
func mergeCounts(a, b map[string]int64) map[string]int64 {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]int64, max(len(a), len(b)))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}
