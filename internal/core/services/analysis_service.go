package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
	"time"
)

// Config хранит конфигурацию для AnalysisService.
type Config struct {
	// TotalTimeout - максимальная продолжительность анализа всего набора чатов.
	TotalTimeout time.Duration
	// PoolSize - количество одновременных воркеров.
	PoolSize int
	// Settings - настройки отчета, сохраняемые в итоговой статистике.
	Settings stats.Settings
	// StopWords - слова, исключаемые из частотных таблиц.
	StopWords stats.StopWords
}

// Option - функциональная опция для настройки AnalysisService.
type Option func(*AnalysisService)

// WithTotalTimeout устанавливает общий таймаут анализа.
func WithTotalTimeout(d time.Duration) Option {
	return func(s *AnalysisService) {
		if d > 0 {
			s.config.TotalTimeout = d
		}
	}
}

// WithPoolSize устанавливает количество одновременных воркеров.
func WithPoolSize(n int) Option {
	return func(s *AnalysisService) {
		if n > 0 {
			s.config.PoolSize = n
		}
	}
}

// WithSettings устанавливает настройки отчета.
func WithSettings(settings stats.Settings) Option {
	return func(s *AnalysisService) {
		s.config.Settings = settings
	}
}

// WithStopWords устанавливает набор стоп-слов.
func WithStopWords(sw stats.StopWords) Option {
	return func(s *AnalysisService) {
		s.config.StopWords = sw
	}
}

// WithLogger устанавливает логгер для сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *AnalysisService) {
		if l != nil {
			s.log = l
		}
	}
}

// AnalysisService считает статистику по набору чатов. Каждый чат анализируется
// отдельным воркером в собственный ChatStats, затем результаты сливаются.
// Сервис не хранит состояние и безопасен для одновременного использования.
type AnalysisService struct {
	config Config
	log    *slog.Logger
}

// NewAnalysisService создает новый AnalysisService с использованием функциональных опций.
func NewAnalysisService(opts ...Option) *AnalysisService {
	s := &AnalysisService{
		config: Config{
			TotalTimeout: 5 * time.Minute,
			PoolSize:     4,
			Settings:     stats.DefaultSettings(),
		},
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Settings возвращает настройки отчета сервиса.
func (s *AnalysisService) Settings() stats.Settings {
	return s.config.Settings
}

type analysisTask struct {
	index int
	chat  *domain.ExportedChat
}

type analysisResult struct {
	index int
	stats *stats.ChatStats
}

// Analyze считает статистику по всем чатам. Результат не зависит от числа
// воркеров: участники упорядочены так же, как при последовательном анализе.
func (s *AnalysisService) Analyze(ctx context.Context, chats []*domain.ExportedChat) (*stats.ChatStats, error) {
	cfg := s.config
	total := stats.NewChatStats(cfg.Settings, cfg.StopWords)
	if len(chats) == 0 {
		return total, nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.TotalTimeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	poolSize := min(cfg.PoolSize, len(chats))
	s.log.InfoContext(ctx, "Starting analysis", "chats", len(chats), "pool_size", poolSize)

	tasks := make(chan analysisTask, len(chats))
	results := make(chan analysisResult, len(chats))
	var wg sync.WaitGroup

	for i := 0; i < poolSize; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, &cfg, tasks, results)
	}

	for i, chat := range chats {
		tasks <- analysisTask{index: i, chat: chat}
	}
	close(tasks)

	partials := make([]*stats.ChatStats, len(chats))
	for finished := 0; finished < len(chats); finished++ {
		select {
		case res := <-results:
			partials[res.index] = res.stats
		case <-ctx.Done():
			err := fmt.Errorf("analysis interrupted: %w", ctx.Err())
			s.log.WarnContext(ctx, "Analysis interrupted", "finished", finished, "error", err)
			return nil, err
		}
	}
	wg.Wait()
	close(results)

	for _, partial := range partials {
		total.Merge(partial)
	}

	s.log.InfoContext(ctx, "Analysis finished successfully",
		"messages", total.Messages,
		"service_messages", total.ServiceMessages,
		"participants", total.Participants.Len(),
	)
	return total, nil
}

func (s *AnalysisService) worker(ctx context.Context, wg *sync.WaitGroup, cfg *Config, tasks <-chan analysisTask, results chan<- analysisResult) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}

			cs := stats.NewChatStats(cfg.Settings, cfg.StopWords)
			if task.chat != nil {
				cs.Analyze(task.chat.Messages)
				s.log.DebugContext(ctx, "Chat analyzed", "chat", task.chat.Name, "messages", len(task.chat.Messages))
			}
			results <- analysisResult{index: task.index, stats: cs}
		}
	}
}
