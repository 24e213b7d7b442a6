package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Text представляет содержимое сообщения: PlainText или StructuredText.
type Text interface {
	isText()
}

// PlainText - текст сообщения, заданный одной строкой.
type PlainText string

// StructuredText - текст сообщения, разбитый на фрагменты.
type StructuredText []TextPart

func (PlainText) isText()      {}
func (StructuredText) isText() {}

// TextPart - фрагмент StructuredText: TextLiteral или TextEntity.
type TextPart interface {
	isTextPart()
}

// TextLiteral - обычная строка внутри StructuredText.
type TextLiteral string

// TextEntity представляет "богатую" часть текста (упоминание, ссылка и т.д.).
type TextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (TextLiteral) isTextPart() {}
func (TextEntity) isTextPart()  {}

// Flatten склеивает содержимое в одну строку без разделителей.
func Flatten(t Text) string {
	switch v := t.(type) {
	case PlainText:
		return string(v)
	case StructuredText:
		var sb strings.Builder
		for _, part := range v {
			switch p := part.(type) {
			case TextLiteral:
				sb.WriteString(string(p))
			case TextEntity:
				sb.WriteString(p.Text)
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// decodeText разбирает поле "text", которое бывает строкой или массивом.
func decodeText(raw json.RawMessage) (Text, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return PlainText(""), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode plain text: %w", err)
		}
		return PlainText(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode structured text: %w", err)
		}
		parts := make(StructuredText, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '"' {
				var s string
				if err := json.Unmarshal(item, &s); err != nil {
					return nil, fmt.Errorf("failed to decode text literal: %w", err)
				}
				parts = append(parts, TextLiteral(s))
				continue
			}
			var entity TextEntity
			if err := json.Unmarshal(item, &entity); err != nil {
				return nil, fmt.Errorf("failed to decode text entity: %w", err)
			}
			parts = append(parts, entity)
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("unexpected text value: %s", raw)
	}
}

// encodeText возвращает значение, которое кодируется в JSON так же, как в экспорте.
func encodeText(t Text) any {
	switch v := t.(type) {
	case PlainText:
		return string(v)
	case StructuredText:
		items := make([]any, 0, len(v))
		for _, part := range v {
			switch p := part.(type) {
			case TextLiteral:
				items = append(items, string(p))
			case TextEntity:
				items = append(items, p)
			}
		}
		return items
	default:
		return ""
	}
}
