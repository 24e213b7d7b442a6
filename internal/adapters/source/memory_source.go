package source

import (
	"errors"
	"telegram-chat-stats/internal/ports"
)

// ErrNoData возвращается, если данные в MemorySource не установлены.
var ErrNoData = errors.New("data not set")

// MemorySource реализует интерфейс DataSource поверх загруженных в память данных,
// например файла, полученного через HTTP.
type MemorySource struct {
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(data []byte) ports.DataSource {
	return &MemorySource{data: data}
}

// Fetch возвращает копию данных.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, ErrNoData
	}

	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
