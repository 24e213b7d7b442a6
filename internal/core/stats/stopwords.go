package stats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Поддерживаемые встроенные наборы стоп-слов.
const (
	StopWordsRussian = "ru"
	StopWordsEnglish = "en"
	StopWordsNone    = "none"
)

// ErrUnknownStopWordsLanguage возвращается для неизвестного встроенного набора.
var ErrUnknownStopWordsLanguage = errors.New("unknown stop words language")

// StopWords - набор слов, исключаемых из частотной таблицы.
type StopWords map[string]struct{}

// NewStopWords создает набор из переданных слов, приводя их к нижнему регистру.
func NewStopWords(words ...string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Contains сообщает, входит ли токен в набор. Работает и для nil.
func (s StopWords) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// BuiltinStopWords возвращает встроенный набор по коду языка.
// Пустой код означает русский набор.
func BuiltinStopWords(lang string) (StopWords, error) {
	switch strings.ToLower(lang) {
	case "", StopWordsRussian:
		return NewStopWords(russianStopWords...), nil
	case StopWordsEnglish:
		return NewStopWords(englishStopWords...), nil
	case StopWordsNone:
		return StopWords{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStopWordsLanguage, lang)
	}
}

// LoadStopWords читает набор из файла: одно слово в строке, '#' начинает комментарий.
func LoadStopWords(path string) (StopWords, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл стоп-слов: %w", err)
	}
	defer file.Close()

	return ParseStopWords(file)
}

// ParseStopWords читает набор стоп-слов из r.
func ParseStopWords(r io.Reader) (StopWords, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stop words: %w", err)
	}
	return NewStopWords(words...), nil
}

var russianStopWords = []string{
	"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как", "а", "то", "все",
	"она", "так", "его", "но", "да", "ты", "к", "у", "же", "вы", "за", "бы", "по",
	"только", "ее", "её", "мне", "было", "вот", "от", "меня", "еще", "ещё", "нет", "о",
	"из", "ему", "теперь", "когда", "даже", "ну", "вдруг", "ли", "если", "уже", "или",
	"ни", "быть", "был", "него", "до", "вас", "нибудь", "опять", "уж", "вам", "ведь",
	"там", "потом", "себя", "ничего", "ей", "может", "они", "тут", "где", "есть",
	"надо", "ней", "для", "мы", "тебя", "их", "чем", "была", "сам", "чтоб", "без",
	"будто", "чего", "раз", "тоже", "себе", "под", "будет", "ж", "тогда", "кто",
	"этот", "того", "потому", "этого", "какой", "совсем", "ним", "здесь", "этом",
	"один", "почти", "мой", "тем", "чтобы", "нее", "сейчас", "были", "куда", "зачем",
	"всех", "никогда", "можно", "при", "наконец", "два", "об", "другой", "хоть",
	"после", "над", "больше", "тот", "через", "эти", "нас", "про", "всего", "них",
	"какая", "много", "разве", "три", "эту", "моя", "впрочем", "хорошо", "свою",
	"этой", "перед", "иногда", "лучше", "чуть", "том", "нельзя", "такой", "им",
	"более", "всегда", "конечно", "всю", "между", "это", "просто", "вообще", "очень",
}

var englishStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "of", "in", "on", "at",
	"to", "for", "from", "by", "with", "about", "as", "into", "is", "are", "was",
	"were", "be", "been", "being", "am", "do", "does", "did", "have", "has", "had",
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them",
	"my", "your", "his", "its", "our", "their", "this", "that", "these", "those",
	"not", "no", "yes", "just", "can", "will", "would", "should", "could", "there",
	"here", "what", "which", "who", "when", "where", "why", "how", "all", "any",
	"some", "more", "most", "very", "too", "also", "than", "up", "down", "out", "ok",
}
