package replies

import (
	"slices"
	"telegram-chat-stats/internal/domain"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry - сообщение из индекса вместе с его идентификатором.
type Entry struct {
	ID      int64
	Message domain.NormalizedMessage
}

// Index хранит нормализованные сообщения в порядке вставки и длины цепочек ответов.
type Index struct {
	messages     *orderedmap.OrderedMap[int64, domain.NormalizedMessage]
	chainLengths map[int64]int
}

// NewIndex создает пустой индекс.
func NewIndex() *Index {
	return &Index{
		messages:     orderedmap.New[int64, domain.NormalizedMessage](),
		chainLengths: make(map[int64]int),
	}
}

// Build строит индекс по записям чата. Служебные сообщения пропускаются.
func Build(records []domain.MessageRecord) *Index {
	idx := NewIndex()
	for _, rec := range records {
		if id, msg, ok := domain.Normalize(rec); ok {
			idx.Insert(id, msg)
		}
	}
	return idx
}

// Insert добавляет сообщение и запоминает длину его цепочки ответов.
// Повторная вставка того же id заменяет сообщение, сохраняя его позицию.
func (idx *Index) Insert(id int64, msg domain.NormalizedMessage) {
	idx.messages.Set(id, msg)

	length := 1
	if msg.ReplyTo != nil && *msg.ReplyTo != id {
		if parent, ok := idx.chainLengths[*msg.ReplyTo]; ok {
			length = parent + 1
		}
	}
	idx.chainLengths[id] = length
}

// Get возвращает сообщение по id.
func (idx *Index) Get(id int64) (domain.NormalizedMessage, bool) {
	return idx.messages.Get(id)
}

// ChainLength возвращает длину цепочки ответов, заканчивающейся сообщением id.
func (idx *Index) ChainLength(id int64) (int, bool) {
	length, ok := idx.chainLengths[id]
	return length, ok
}

// Len возвращает количество сообщений в индексе.
func (idx *Index) Len() int {
	return idx.messages.Len()
}

// LongestChain возвращает самую длинную цепочку ответов от корня к листу.
// При равенстве длин выбирается первое по порядку вставки сообщение.
// Цикл в ссылках обрывает цепочку.
func (idx *Index) LongestChain() []Entry {
	var (
		bestID  int64
		bestLen int
	)
	for pair := idx.messages.Oldest(); pair != nil; pair = pair.Next() {
		if length := idx.chainLengths[pair.Key]; length > bestLen {
			bestID, bestLen = pair.Key, length
		}
	}
	if bestLen == 0 {
		return nil
	}

	chain := make([]Entry, 0, bestLen)
	visited := make(map[int64]struct{}, bestLen)
	current := bestID
	for {
		if _, seen := visited[current]; seen {
			break
		}
		msg, ok := idx.messages.Get(current)
		if !ok {
			break
		}
		visited[current] = struct{}{}
		chain = append(chain, Entry{ID: current, Message: msg})

		if msg.ReplyTo == nil {
			break
		}
		current = *msg.ReplyTo
	}

	slices.Reverse(chain)
	return chain
}
