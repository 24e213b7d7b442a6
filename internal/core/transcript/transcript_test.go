package transcript

import (
	"bytes"
	"errors"
	"telegram-chat-stats/internal/core/replies"
	"telegram-chat-stats/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func replyTo(id int64) *int64 {
	return &id
}

func aliceAndBob() *domain.ExportedChat {
	return &domain.ExportedChat{
		Name: "Test",
		Messages: []domain.MessageRecord{
			&domain.RegularMessage{ID: 1, Date: "2024-03-01T10:00:00", From: "Alice", Text: domain.PlainText("Hi there")},
			&domain.RegularMessage{
				ID:               2,
				Date:             "2024-03-01T10:01:00",
				From:             "Bob",
				ReplyToMessageID: replyTo(1),
				Text:             domain.PlainText("Hello!"),
				Reactions: []domain.Reaction{
					domain.EmojiReaction{Count: 1, Emoji: "👍", Recent: []domain.RecentReaction{{From: "Alice"}}},
				},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	t.Run("Сценарий Алиса и Боб", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, aliceAndBob()))

		expected := "[2024-03-01 10:00:00] @Alice: Hi there\n" +
			"[2024-03-01 10:01:00] @Bob: Hello!\n" +
			"  ↳ [reply to msg#1] @Alice: Hi there\n" +
			"  ↳ [reaction: 👍 by @Alice]\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("Порядок пометок и служебные записи", func(t *testing.T) {
		chat := &domain.ExportedChat{Messages: []domain.MessageRecord{
			&domain.ServiceMessage{ID: 1, Date: "2024-01-01T00:00:00", Action: "create_group"},
			&domain.RegularMessage{
				ID:               2,
				Date:             "2024-01-01T00:00:01Z",
				From:             "Carol",
				ReplyToMessageID: replyTo(1),
				Text:             domain.StructuredText{domain.TextLiteral("line one\nline "), domain.TextEntity{Type: "bold", Text: "two"}},
				Edited:           "2024-01-01T00:05:00",
				Reactions: []domain.Reaction{
					domain.CustomEmojiReaction{Count: 3, DocumentID: "5368324170671202286", Recent: []domain.RecentReaction{{From: "A"}, {From: "B"}}},
					domain.EmojiReaction{Count: 1, Emoji: "🔥"},
				},
			},
		}}

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, chat))

		expected := "[2024-01-01 00:00:01] @Carol: line one line two\n" +
			"  ↳ [edited] 2024-01-01 00:05:00\n" +
			"  ↳ [reply to unknown msg#1]\n" +
			"  ↳ [reaction: custom_emoji:5368324170671202286 by @A, @B]\n" +
			"  ↳ [reaction: 🔥 by ]\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("Старый формат склеивает имена без разделителя", func(t *testing.T) {
		chat := &domain.ExportedChat{Messages: []domain.MessageRecord{
			&domain.RegularMessage{
				ID: 1, Date: "2024-01-01T00:00:00", From: "X", Text: domain.PlainText("x"),
				Reactions: []domain.Reaction{
					domain.EmojiReaction{Count: 2, Emoji: "❤", Recent: []domain.RecentReaction{{From: "A"}, {From: "B"}}},
				},
			},
		}}

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, chat, WithReactorSeparator(LegacySeparator)))
		assert.Contains(t, buf.String(), "[reaction: ❤ by @A@B]")
	})

	t.Run("Ограничение числа записей учитывает служебные", func(t *testing.T) {
		chat := aliceAndBob()
		chat.Messages = append([]domain.MessageRecord{&domain.ServiceMessage{ID: 0}}, chat.Messages...)

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, chat, WithMaxMessages(2)))
		assert.Equal(t, "[2024-03-01 10:00:00] @Alice: Hi there\n", buf.String())
	})

	t.Run("Ответ на сообщение за пределами ограничения", func(t *testing.T) {
		chat := aliceAndBob()
		chat.Messages = chat.Messages[1:]

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, chat, WithMaxMessages(0)))
		assert.Contains(t, buf.String(), "  ↳ [reply to unknown msg#1]\n")
	})

	t.Run("Ответ самому себе цитирует это же сообщение", func(t *testing.T) {
		chat := &domain.ExportedChat{Messages: []domain.MessageRecord{
			&domain.RegularMessage{ID: 1, Date: "2024-01-01T10:00:00", From: "A", Text: domain.PlainText("hi"), ReplyToMessageID: replyTo(1)},
		}}

		var buf bytes.Buffer
		require.NoError(t, Write(&buf, chat))
		assert.Equal(t, "[2024-01-01 10:00:00] @A: hi\n  ↳ [reply to msg#1] @A: hi\n", buf.String())
	})

	t.Run("Ошибка записи", func(t *testing.T) {
		err := Write(failingWriter{}, aliceAndBob())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestWriteChain(t *testing.T) {
	chain := []replies.Entry{
		{ID: 1, Message: domain.NormalizedMessage{From: "Alice", Text: "root"}},
		{ID: 2, Message: domain.NormalizedMessage{From: "Bob", Text: "multi\nline"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChain(&buf, chain))
	assert.Equal(t,
		"[unknown date] msg#1 @Alice: root\n  ↳ [unknown date] msg#2 @Bob: multi line\n",
		buf.String())
}

func TestCleanDate(t *testing.T) {
	assert.Equal(t, "2024-01-01 10:00:00", CleanDate("2024-01-01T10:00:00"))
	assert.Equal(t, "2024-01-01 10:00:00", CleanDate("2024-01-01T10:00:00Z"))
	assert.Equal(t, "", CleanDate(""))
}
