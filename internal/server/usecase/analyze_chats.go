package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/core/transcript"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/ports"
	"time"
)

// Result - итог анализа набора файлов.
type Result struct {
	Stats  *stats.ChatStats
	Hash   string // ключ кэша для повторного получения результата
	Cached bool
}

// AnalyzeChatsUseCase инкапсулирует бизнес-логику анализа файлов экспорта чата.
type AnalyzeChatsUseCase struct {
	parser   ports.Parser
	analyzer ports.AnalysisService
	cache    ports.ResultCache
	cacheTTL time.Duration
	params   []string
	logger   *slog.Logger
}

// NewAnalyzeChatsUseCase создает новый экземпляр AnalyzeChatsUseCase.
// params участвуют в ключе кэша: результат с другими настройками не переиспользуется.
func NewAnalyzeChatsUseCase(
	parser ports.Parser,
	analyzer ports.AnalysisService,
	resultCache ports.ResultCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
	params ...string,
) *AnalyzeChatsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeChatsUseCase{
		parser:   parser,
		analyzer: analyzer,
		cache:    resultCache,
		cacheTTL: cacheTTL,
		params:   params,
		logger:   logger.With("component", "analyze_chats"),
	}
}

// CacheParams возвращает параметры анализа, влияющие на результат.
func CacheParams(settings stats.Settings, stopWords, stopWordsFile string) []string {
	return []string{
		"words=" + strconv.Itoa(settings.MaxWordsDisplayed),
		"participants=" + strconv.Itoa(settings.MaxParticipantsDisplayed),
		"entities=" + strconv.FormatBool(settings.ShowEntityHistogram),
		"stop_words=" + stopWords,
		"stop_words_file=" + stopWordsFile,
	}
}

// AnalyzeChats считает общую статистику по нескольким файлам экспорта.
// Результат для того же набора файлов и параметров берется из кэша.
func (uc *AnalyzeChatsUseCase) AnalyzeChats(ctx context.Context, filePaths []string) (Result, error) {
	var fileHashes []string
	for _, filePath := range filePaths {
		fileHash, err := cache.CalculateFileHash(filePath)
		if err != nil {
			return Result{}, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
		}
		fileHashes = append(fileHashes, fileHash)
	}

	// Единый хеш для набора файлов и параметров анализа
	combinedHash := cache.CombineHashes(fileHashes, uc.params...)

	if cached, found := uc.cache.Get(combinedHash); found {
		uc.logger.InfoContext(ctx, "Попадание в кэш для набора файлов", "hash", combinedHash)
		return Result{Stats: cached, Hash: combinedHash, Cached: true}, nil
	}

	chats := make([]*domain.ExportedChat, 0, len(filePaths))
	for _, filePath := range filePaths {
		chat, err := uc.loadChat(filePath)
		if err != nil {
			return Result{}, err
		}
		uc.logger.InfoContext(ctx, "Разобран чат", "path", filePath, "name", chat.Name, "message_count", len(chat.Messages))
		chats = append(chats, chat)
	}

	result, err := uc.analyzer.Analyze(ctx, chats)
	if err != nil {
		return Result{}, fmt.Errorf("не удалось посчитать статистику: %w", err)
	}

	if err := uc.cache.Put(combinedHash, result, uc.cacheTTL); err != nil {
		// Ошибка кэша не отменяет посчитанный результат
		uc.logger.WarnContext(ctx, "Не удалось сохранить результат в кэш", "hash", combinedHash, "error", err)
	} else {
		uc.logger.InfoContext(ctx, "Результат кэширован для набора файлов", "hash", combinedHash, "ttl", uc.cacheTTL.String())
	}

	uc.logger.InfoContext(ctx, "Анализ успешно завершен", "participants", result.Participants.Len(), "messages", result.Messages)
	return Result{Stats: result, Hash: combinedHash}, nil
}

// Lookup возвращает ранее посчитанный результат по хешу.
func (uc *AnalyzeChatsUseCase) Lookup(hash string) (*stats.ChatStats, bool) {
	return uc.cache.Get(hash)
}

// RenderTranscript разбирает один файл экспорта и пишет его расшифровку в w.
func (uc *AnalyzeChatsUseCase) RenderTranscript(filePath string, w io.Writer, opts ...transcript.Option) error {
	chat, err := uc.loadChat(filePath)
	if err != nil {
		return err
	}
	return transcript.Write(w, chat, opts...)
}

func (uc *AnalyzeChatsUseCase) loadChat(filePath string) (*domain.ExportedChat, error) {
	data, err := source.NewFileSource(filePath).Fetch()
	if err != nil {
		return nil, fmt.Errorf("не удалось извлечь данные из %s: %w", filePath, err)
	}

	chat, err := uc.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать данные из %s: %w", filePath, err)
	}
	return chat, nil
}
