package ports

import (
	"context"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
	"time"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для парсинга данных чата.
type Parser interface {
	// Parse преобразует сырые данные в структурированную модель чата.
	Parse(data []byte) (*domain.ExportedChat, error)
}

// AnalysisService определяет интерфейс для подсчета статистики по набору чатов.
type AnalysisService interface {
	Analyze(ctx context.Context, chats []*domain.ExportedChat) (*stats.ChatStats, error)
}

// ResultCache хранит посчитанную статистику по хешу набора файлов.
type ResultCache interface {
	Get(key string) (*stats.ChatStats, bool)
	Put(key string, data *stats.ChatStats, ttl time.Duration) error
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	// Export принимает итоговую статистику и выводит ее.
	Export(cs *stats.ChatStats) error
}
