package domain

import (
	"encoding/json"
	"fmt"
)

// Значения поля "type" у реакций.
const (
	ReactionTypeEmoji       = "emoji"
	ReactionTypeCustomEmoji = "custom_emoji"
)

// Reaction - реакция на сообщение: EmojiReaction или CustomEmojiReaction.
type Reaction interface {
	// Key возвращает ключ для подсчета: эмодзи или идентификатор документа.
	Key() string
	// Total возвращает общее число таких реакций.
	Total() int64
	// Reactors возвращает выборку последних поставивших реакцию.
	Reactors() []RecentReaction
}

// RecentReaction - запись о том, кто и когда поставил реакцию.
// Список в экспорте усечен и не обязан совпадать с Count.
type RecentReaction struct {
	From   string `json:"from"`
	FromID string `json:"from_id"`
	Date   string `json:"date"`
}

// EmojiReaction - реакция стандартным эмодзи.
type EmojiReaction struct {
	Count  int64            `json:"count"`
	Emoji  string           `json:"emoji"`
	Recent []RecentReaction `json:"recent,omitempty"`
}

func (r EmojiReaction) Key() string                { return r.Emoji }
func (r EmojiReaction) Total() int64               { return r.Count }
func (r EmojiReaction) Reactors() []RecentReaction { return r.Recent }

// MarshalJSON добавляет поле "type".
func (r EmojiReaction) MarshalJSON() ([]byte, error) {
	type alias EmojiReaction
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: ReactionTypeEmoji, alias: alias(r)})
}

// CustomEmojiReaction - реакция пользовательским эмодзи (стикером-документом).
type CustomEmojiReaction struct {
	Count      int64            `json:"count"`
	DocumentID string           `json:"document_id"`
	Recent     []RecentReaction `json:"recent,omitempty"`
}

func (r CustomEmojiReaction) Key() string                { return r.DocumentID }
func (r CustomEmojiReaction) Total() int64               { return r.Count }
func (r CustomEmojiReaction) Reactors() []RecentReaction { return r.Recent }

// MarshalJSON добавляет поле "type".
func (r CustomEmojiReaction) MarshalJSON() ([]byte, error) {
	type alias CustomEmojiReaction
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: ReactionTypeCustomEmoji, alias: alias(r)})
}

// decodeReactions разбирает список реакций. Реакции неизвестного типа
// (например, платные) пропускаются.
func decodeReactions(items []json.RawMessage) ([]Reaction, error) {
	if len(items) == 0 {
		return nil, nil
	}

	reactions := make([]Reaction, 0, len(items))
	for _, item := range items {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil, fmt.Errorf("failed to decode reaction: %w", err)
		}

		switch probe.Type {
		case ReactionTypeEmoji:
			var r EmojiReaction
			if err := json.Unmarshal(item, &r); err != nil {
				return nil, fmt.Errorf("failed to decode emoji reaction: %w", err)
			}
			reactions = append(reactions, r)
		case ReactionTypeCustomEmoji:
			var r CustomEmojiReaction
			if err := json.Unmarshal(item, &r); err != nil {
				return nil, fmt.Errorf("failed to decode custom emoji reaction: %w", err)
			}
			reactions = append(reactions, r)
		}
	}
	return reactions, nil
}
