package source

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"telegram-chat-stats/internal/domain"
)

const (
	// ExportDirName - каталог в "Загрузках", куда Telegram Desktop складывает экспорты.
	ExportDirName = "Telegram Desktop"
	// ResultFileName - имя файла экспорта внутри каталога чата.
	ResultFileName = "result.json"
)

// DefaultExportRoot возвращает ~/Downloads/Telegram Desktop.
func DefaultExportRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось определить домашний каталог: %w", err)
	}
	return filepath.Join(home, "Downloads", ExportDirName), nil
}

// DirSource ищет экспорты чатов в подкаталогах корневого каталога.
type DirSource struct {
	root   string
	logger *slog.Logger
}

// NewDirSource создает новый экземпляр DirSource.
func NewDirSource(root string, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{root: root, logger: logger}
}

// Discover возвращает найденные экспорты, отсортированные по id чата.
// Нечитаемые и некорректные файлы пропускаются с предупреждением.
// Для повторяющегося id остается последний найденный каталог.
func (s *DirSource) Discover() ([]domain.ChatInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("can't open Telegram export directory %s: %w", s.root, err)
	}

	byID := make(map[int64]domain.ChatInfo)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, ok := s.load(filepath.Join(s.root, entry.Name(), ResultFileName))
		if ok {
			byID[info.ID] = info
		}
	}

	chats := make([]domain.ChatInfo, 0, len(byID))
	for _, info := range byID {
		chats = append(chats, info)
	}
	slices.SortFunc(chats, func(a, b domain.ChatInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return chats, nil
}

// Paths возвращает пути ко всем найденным файлам экспорта.
func (s *DirSource) Paths() ([]string, error) {
	chats, err := s.Discover()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(chats))
	for _, c := range chats {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

func (s *DirSource) load(manifest string) (domain.ChatInfo, bool) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		s.logger.Warn("Не удалось прочитать файл экспорта", "path", manifest, "error", err)
		return domain.ChatInfo{}, false
	}

	var header struct {
		Name string `json:"name"`
		Type string `json:"type"`
		ID   int64  `json:"id"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		s.logger.Warn("Некорректный JSON в файле экспорта", "path", manifest, "error", err)
		return domain.ChatInfo{}, false
	}

	return domain.ChatInfo{
		ID:   header.ID,
		Name: header.Name,
		Type: header.Type,
		Path: manifest,
		Size: int64(len(data)),
	}, true
}
