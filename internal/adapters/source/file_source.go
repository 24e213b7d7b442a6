package source

import (
	"errors"
	"fmt"
	"os"
	"telegram-chat-stats/internal/ports"
)

// ErrNoPath возвращается, если путь к файлу не задан.
var ErrNoPath = errors.New("не указан путь к файлу")

// FileSource реализует интерфейс DataSource для чтения экспорта из файла.
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, ErrNoPath
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
