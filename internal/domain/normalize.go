package domain

import (
	"strconv"
	"time"
)

// NormalizedMessage - обычное сообщение, приведенное к единому виду.
type NormalizedMessage struct {
	Date         *time.Time
	From         string
	ReplyTo      *int64
	Text         string
	Reactions    []Reaction
	Edited       *time.Time
	TextEntities []TextEntity
}

// Normalize приводит запись к NormalizedMessage. Для служебных сообщений
// возвращает ok == false.
func Normalize(rec MessageRecord) (id int64, msg NormalizedMessage, ok bool) {
	m, isRegular := rec.(*RegularMessage)
	if !isRegular || m == nil {
		return 0, NormalizedMessage{}, false
	}

	reactions := m.Reactions
	if reactions == nil {
		reactions = []Reaction{}
	}

	return m.ID, NormalizedMessage{
		Date:         ParseUnixtime(m.DateUnixtime),
		From:         m.From,
		ReplyTo:      m.ReplyToMessageID,
		Text:         Flatten(m.Text),
		Reactions:    reactions,
		Edited:       ParseUnixtime(m.EditedUnixtime),
		TextEntities: m.TextEntities,
	}, true
}

// ParseUnixtime разбирает строку с секундами от начала эпохи.
// При ошибке возвращает nil.
func ParseUnixtime(s string) *time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}
