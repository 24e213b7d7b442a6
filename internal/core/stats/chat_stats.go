package stats

import (
	"encoding/json"
	"slices"
	"telegram-chat-stats/internal/domain"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Значения настроек по умолчанию.
const (
	DefaultMaxWordsDisplayed        = 10
	DefaultMaxParticipantsDisplayed = 5
)

// Settings управляет тем, сколько данных попадает в отчет.
type Settings struct {
	MaxWordsDisplayed        int  `json:"max_words_displayed"`
	MaxParticipantsDisplayed int  `json:"max_participants_displayed"`
	ShowEntityHistogram      bool `json:"show_entity_histogram"`
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxWordsDisplayed:        DefaultMaxWordsDisplayed,
		MaxParticipantsDisplayed: DefaultMaxParticipantsDisplayed,
		ShowEntityHistogram:      true,
	}
}

// ChatStats - статистика по одному или нескольким чатам.
// Нулевое значение готово к использованию; NewChatStats задает настройки и стоп-слова.
type ChatStats struct {
	Messages        int64                                       `json:"messages"`
	ServiceMessages int64                                       `json:"service_messages"`
	Edited          int64                                       `json:"edited"`
	Participants    *orderedmap.OrderedMap[string, *UserStats] `json:"participants"`
	TextEntityTypes map[string]int64                            `json:"text_entity_types"`
	Settings        Settings                                    `json:"settings"`

	stopWords StopWords
}

// NamedStats - статистика участника вместе с его именем.
type NamedStats struct {
	Name  string
	Stats UserStats
}

// NewChatStats создает пустую статистику.
func NewChatStats(settings Settings, stopWords StopWords) *ChatStats {
	return &ChatStats{
		Participants:    orderedmap.New[string, *UserStats](),
		TextEntityTypes: make(map[string]int64),
		Settings:        settings,
		stopWords:       stopWords,
	}
}

// Analyze добавляет в статистику записи чата. Может вызываться многократно
// для накопления данных по нескольким чатам.
func (cs *ChatStats) Analyze(records []domain.MessageRecord) {
	for _, rec := range records {
		switch m := rec.(type) {
		case *domain.ServiceMessage:
			if m == nil {
				continue
			}
			cs.ServiceMessages++
			cs.countEntities(m.TextEntities)
		case *domain.RegularMessage:
			_, msg, ok := domain.Normalize(m)
			if !ok {
				continue
			}
			cs.Messages++

			user := cs.participant(msg.From)
			user.AddMessage(msg.Date, msg.Text, cs.stopWords)
			user.AddReactions(msg.Reactions)

			if m.IsEdited() {
				cs.Edited++
			}
			cs.countEntities(msg.TextEntities)
		}
	}
}

// Merge добавляет к статистике данные other. Порядок слияния не влияет на счетчики.
func (cs *ChatStats) Merge(other *ChatStats) {
	if other == nil {
		return
	}

	cs.Messages += other.Messages
	cs.ServiceMessages += other.ServiceMessages
	cs.Edited += other.Edited
	if len(other.TextEntityTypes) > 0 && cs.TextEntityTypes == nil {
		cs.TextEntityTypes = make(map[string]int64)
	}
	for kind, n := range other.TextEntityTypes {
		cs.TextEntityTypes[kind] += n
	}
	if other.Participants == nil {
		return
	}
	for pair := other.Participants.Oldest(); pair != nil; pair = pair.Next() {
		user := cs.participant(pair.Key)
		*user = Combine(*user, *pair.Value)
	}
}

// Combined возвращает объединение статистик всех участников.
func (cs *ChatStats) Combined() UserStats {
	var combined UserStats
	if cs.Participants == nil {
		return combined
	}
	for pair := cs.Participants.Oldest(); pair != nil; pair = pair.Next() {
		combined = Combine(combined, *pair.Value)
	}
	return combined
}

// TotalReactions возвращает общее количество реакций в чате.
func (cs *ChatStats) TotalReactions() int64 {
	return cs.Combined().TotalReactions()
}

// Participant возвращает статистику участника по имени.
func (cs *ChatStats) Participant(name string) (UserStats, bool) {
	if cs.Participants == nil {
		return UserStats{}, false
	}
	user, ok := cs.Participants.Get(name)
	if !ok {
		return UserStats{}, false
	}
	return *user, true
}

// Ranked возвращает участников по убыванию числа сообщений.
// При равенстве сохраняется порядок появления.
func (cs *ChatStats) Ranked() []NamedStats {
	if cs.Participants == nil {
		return nil
	}
	ranked := make([]NamedStats, 0, cs.Participants.Len())
	for pair := cs.Participants.Oldest(); pair != nil; pair = pair.Next() {
		ranked = append(ranked, NamedStats{Name: pair.Key, Stats: *pair.Value})
	}
	slices.SortStableFunc(ranked, func(a, b NamedStats) int {
		switch {
		case a.Stats.Count > b.Stats.Count:
			return -1
		case a.Stats.Count < b.Stats.Count:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// EntityHistogram возвращает типы сущностей по убыванию количества.
func (cs *ChatStats) EntityHistogram() []Count {
	return sortedCounts(cs.TextEntityTypes)
}

// UnmarshalJSON восстанавливает статистику, сохраненную в кэше.
func (cs *ChatStats) UnmarshalJSON(data []byte) error {
	type alias ChatStats
	aux := alias{
		Participants:    orderedmap.New[string, *UserStats](),
		TextEntityTypes: make(map[string]int64),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Participants == nil {
		aux.Participants = orderedmap.New[string, *UserStats]()
	}
	if aux.TextEntityTypes == nil {
		aux.TextEntityTypes = make(map[string]int64)
	}
	*cs = ChatStats(aux)
	return nil
}

func (cs *ChatStats) participant(name string) *UserStats {
	if cs.Participants == nil {
		cs.Participants = orderedmap.New[string, *UserStats]()
	}
	user, ok := cs.Participants.Get(name)
	if !ok {
		user = &UserStats{}
		cs.Participants.Set(name, user)
	}
	return user
}

func (cs *ChatStats) countEntities(entities []domain.TextEntity) {
	if len(entities) > 0 && cs.TextEntityTypes == nil {
		cs.TextEntityTypes = make(map[string]int64)
	}
	for _, e := range entities {
		cs.TextEntityTypes[e.Type]++
	}
}
