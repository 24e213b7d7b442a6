package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Значения поля "type" у записей экспорта.
const (
	MessageTypeRegular = "message"
	MessageTypeService = "service"
)

// ErrUnknownMessageType возвращается для записи с неизвестным значением "type".
var ErrUnknownMessageType = errors.New("unknown message type")

// ExportedChat представляет корневую структуру файла экспорта.
type ExportedChat struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ID       int64           `json:"id"`
	Messages []MessageRecord `json:"messages"`
}

// UnmarshalJSON разбирает чат, определяя вариант каждой записи по полю "type".
func (c *ExportedChat) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string            `json:"name"`
		Type     string            `json:"type"`
		ID       int64             `json:"id"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	records := make([]MessageRecord, 0, len(raw.Messages))
	for i, item := range raw.Messages {
		rec, err := DecodeMessageRecord(item)
		if err != nil {
			return fmt.Errorf("message #%d: %w", i, err)
		}
		records = append(records, rec)
	}

	c.Name = raw.Name
	c.Type = raw.Type
	c.ID = raw.ID
	c.Messages = records
	return nil
}

// MessageRecord - запись из экспорта: *RegularMessage или *ServiceMessage.
type MessageRecord interface {
	RecordID() int64
	isMessageRecord()
}

// DecodeMessageRecord разбирает одну запись экспорта.
func DecodeMessageRecord(data []byte) (MessageRecord, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case MessageTypeRegular:
		var m RegularMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case MessageTypeService:
		var m ServiceMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, probe.Type)
	}
}

// RegularMessage представляет обычное сообщение участника.
type RegularMessage struct {
	ID               int64        `json:"id"`
	Date             string       `json:"date"`
	DateUnixtime     string       `json:"date_unixtime"`
	From             string       `json:"from"`
	FromID           string       `json:"from_id"`
	ReplyToMessageID *int64       `json:"reply_to_message_id,omitempty"`
	Text             Text         `json:"text"`
	TextEntities     []TextEntity `json:"text_entities"`
	Edited           string       `json:"edited,omitempty"`
	EditedUnixtime   string       `json:"edited_unixtime,omitempty"`
	Reactions        []Reaction   `json:"reactions,omitempty"`
}

// RecordID возвращает идентификатор сообщения.
func (m *RegularMessage) RecordID() int64 { return m.ID }
func (*RegularMessage) isMessageRecord() {}

// IsEdited сообщает, есть ли у сообщения отметка о редактировании.
func (m *RegularMessage) IsEdited() bool {
	return m.Edited != "" || m.EditedUnixtime != ""
}

// UnmarshalJSON разбирает полиморфные поля text и reactions.
func (m *RegularMessage) UnmarshalJSON(data []byte) error {
	type alias RegularMessage
	aux := struct {
		*alias
		Text      json.RawMessage   `json:"text"`
		Reactions []json.RawMessage `json:"reactions"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	text, err := decodeText(aux.Text)
	if err != nil {
		return err
	}
	m.Text = text

	reactions, err := decodeReactions(aux.Reactions)
	if err != nil {
		return err
	}
	m.Reactions = reactions
	return nil
}

// MarshalJSON кодирует сообщение в формате экспорта вместе с полем "type".
func (m RegularMessage) MarshalJSON() ([]byte, error) {
	type alias RegularMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
		Text any `json:"text"`
	}{
		Type:  MessageTypeRegular,
		alias: alias(m),
		Text:  encodeText(m.Text),
	})
}

// ServiceMessage представляет служебное сообщение (звонок, вступление в чат и т.д.).
type ServiceMessage struct {
	ID              int64        `json:"id"`
	Date            string       `json:"date"`
	DateUnixtime    string       `json:"date_unixtime"`
	Actor           string       `json:"actor"`
	ActorID         string       `json:"actor_id"`
	Action          string       `json:"action"`
	DurationSeconds *uint32      `json:"duration_seconds,omitempty"`
	DiscardReason   *string      `json:"discard_reason,omitempty"`
	Text            Text         `json:"text"`
	TextEntities    []TextEntity `json:"text_entities"`
}

// RecordID возвращает идентификатор сообщения.
func (m *ServiceMessage) RecordID() int64 { return m.ID }
func (*ServiceMessage) isMessageRecord() {}

// UnmarshalJSON разбирает полиморфное поле text.
func (m *ServiceMessage) UnmarshalJSON(data []byte) error {
	type alias ServiceMessage
	aux := struct {
		*alias
		Text json.RawMessage `json:"text"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	text, err := decodeText(aux.Text)
	if err != nil {
		return err
	}
	m.Text = text
	return nil
}

// MarshalJSON кодирует служебное сообщение вместе с полем "type".
func (m ServiceMessage) MarshalJSON() ([]byte, error) {
	type alias ServiceMessage
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
		Text any `json:"text"`
	}{
		Type:  MessageTypeService,
		alias: alias(m),
		Text:  encodeText(m.Text),
	})
}

// ChatInfo описывает найденный на диске экспорт чата.
type ChatInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}
