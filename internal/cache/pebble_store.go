package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"telegram-chat-stats/internal/core/stats"
	"time"

	"github.com/cockroachdb/pebble"
)

const statsKeyPrefix = "stats:"

// persistedItem - запись кэша на диске.
type persistedItem struct {
	ExpiresAt time.Time        `json:"expires_at"`
	Stats     *stats.ChatStats `json:"stats"`
}

// PebbleStore хранит посчитанную статистику в pebble, чтобы кэш переживал перезапуск.
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger
}

// NewPebbleStore открывает (или создает) хранилище в каталоге dir.
func NewPebbleStore(dir string, logger *slog.Logger) (*PebbleStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог кэша: %w", err)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble cache at %s: %w", dir, err)
	}
	return &PebbleStore{db: db, logger: logger}, nil
}

// Close закрывает хранилище.
func (ps *PebbleStore) Close() error {
	if ps == nil || ps.db == nil {
		return nil
	}
	return ps.db.Close()
}

// Get извлекает статистику по ключу. Просроченные и поврежденные записи
// считаются отсутствующими.
func (ps *PebbleStore) Get(key string) (*stats.ChatStats, bool) {
	value, closer, err := ps.db.Get([]byte(statsKeyPrefix + key))
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			ps.logger.Warn("Не удалось прочитать запись кэша", "key", key, "error", err)
		}
		return nil, false
	}
	defer closer.Close()

	var item persistedItem
	if err := json.Unmarshal(value, &item); err != nil {
		ps.logger.Warn("Поврежденная запись кэша", "key", key, "error", err)
		return nil, false
	}
	if item.Stats == nil || time.Now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Stats, true
}

// Put сохраняет статистику с указанным сроком действия.
func (ps *PebbleStore) Put(key string, data *stats.ChatStats, ttl time.Duration) error {
	value, err := json.Marshal(persistedItem{ExpiresAt: time.Now().Add(ttl), Stats: data})
	if err != nil {
		return fmt.Errorf("failed to encode cache item: %w", err)
	}
	if err := ps.db.Set([]byte(statsKeyPrefix+key), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write cache item: %w", err)
	}
	return nil
}

// CleanupExpired удаляет просроченные и поврежденные записи и возвращает их число.
func (ps *PebbleStore) CleanupExpired() (int, error) {
	prefix := []byte(statsKeyPrefix)
	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create cache iterator: %w", err)
	}

	var stale [][]byte
	now := time.Now()
	for ok := iter.First(); ok; ok = iter.Next() {
		var item struct {
			ExpiresAt time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(iter.Value(), &item); err != nil || now.After(item.ExpiresAt) {
			stale = append(stale, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to iterate cache: %w", err)
	}

	for _, key := range stale {
		if err := ps.db.Delete(key, pebble.Sync); err != nil {
			return 0, fmt.Errorf("failed to delete cache item: %w", err)
		}
	}
	return len(stale), nil
}

// StartCleanupTicker запускает периодическую очистку просроченных записей.
func (ps *PebbleStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	startTicker(ctx, interval, func() {
		removed, err := ps.CleanupExpired()
		if err != nil {
			ps.logger.Error("Ошибка очистки кэша", "error", err)
			return
		}
		if removed > 0 {
			ps.logger.Debug("Удалены просроченные записи кэша", "count", removed)
		}
	})
}

// prefixUpperBound возвращает наименьший ключ, больший всех ключей с префиксом.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
