package report

import (
	"encoding/json"
	"fmt"
	"io"
	"telegram-chat-stats/internal/core/stats"
	"time"
)

// Options управляет содержимым снимка статистики.
type Options struct {
	// IncludeTables добавляет в снимок таблицы слов и реакций участников.
	IncludeTables bool
}

// ParticipantSnapshot - данные участника в снимке.
type ParticipantSnapshot struct {
	Count        int64            `json:"count"`
	TotalChars   int64            `json:"total_chars"`
	MaxChars     int64            `json:"max_chars"`
	AvgChars     int64            `json:"avg_chars"`
	FirstMessage *time.Time       `json:"first_message,omitempty"`
	LastMessage  *time.Time       `json:"last_message,omitempty"`
	Words        map[string]int64 `json:"words,omitempty"`
	Reactions    map[string]int64 `json:"reactions,omitempty"`
}

// Snapshot - стабильное машиночитаемое представление статистики.
type Snapshot struct {
	Messages        int64                          `json:"messages"`
	ServiceMessages int64                          `json:"service_messages"`
	Edited          int64                          `json:"edited"`
	TotalReactions  int64                          `json:"total_reactions"`
	Participants    map[string]ParticipantSnapshot `json:"participants"`
	TextEntityTypes map[string]int64               `json:"text_entity_types"`
	Settings        stats.Settings                 `json:"settings"`
}

// NewSnapshot строит снимок статистики.
func NewSnapshot(cs *stats.ChatStats, opts Options) Snapshot {
	snap := Snapshot{
		Messages:        cs.Messages,
		ServiceMessages: cs.ServiceMessages,
		Edited:          cs.Edited,
		TotalReactions:  cs.TotalReactions(),
		Participants:    make(map[string]ParticipantSnapshot, cs.Participants.Len()),
		TextEntityTypes: make(map[string]int64, len(cs.TextEntityTypes)),
		Settings:        cs.Settings,
	}

	for _, p := range cs.Ranked() {
		ps := ParticipantSnapshot{
			Count:        p.Stats.Count,
			TotalChars:   p.Stats.TotalChars,
			MaxChars:     p.Stats.MaxChars,
			AvgChars:     p.Stats.AvgChars(),
			FirstMessage: p.Stats.FirstMessage,
			LastMessage:  p.Stats.LastMessage,
		}
		if opts.IncludeTables {
			clone := p.Stats.Clone()
			ps.Words = clone.Words
			ps.Reactions = clone.Reactions
		}
		snap.Participants[p.Name] = ps
	}
	for kind, n := range cs.TextEntityTypes {
		snap.TextEntityTypes[kind] = n
	}

	return snap
}

// WriteJSON записывает снимок статистики в w в виде JSON с отступами.
func WriteJSON(w io.Writer, cs *stats.ChatStats, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSnapshot(cs, opts)); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return nil
}
