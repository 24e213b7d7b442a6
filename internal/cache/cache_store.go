package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"telegram-chat-stats/internal/core/stats"
	"time"
)

// CacheItem представляет кэшированный результат
type CacheItem struct {
	Data      *stats.ChatStats
	ExpiresAt time.Time
}

// CacheStore хранит посчитанную статистику в памяти процесса
type CacheStore struct {
	cache map[string]*CacheItem
	mutex sync.RWMutex
}

// NewCacheStore создает новый экземпляр CacheStore
func NewCacheStore() *CacheStore {
	return &CacheStore{
		cache: make(map[string]*CacheItem),
	}
}

// Get извлекает статистику по ключу (хешу набора файлов)
func (cs *CacheStore) Get(key string) (*stats.ChatStats, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	item, exists := cs.cache[key]
	if !exists || time.Now().After(item.ExpiresAt) {
		return nil, false
	}

	return item.Data, true
}

// Put сохраняет статистику в кэш с указанным сроком действия
func (cs *CacheStore) Put(key string, data *stats.ChatStats, ttl time.Duration) error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len возвращает число записей, включая еще не удаленные просроченные
func (cs *CacheStore) Len() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return len(cs.cache)
}

// CleanupExpired удаляет просроченные элементы из кэша
func (cs *CacheStore) CleanupExpired() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := time.Now()
	for key, item := range cs.cache {
		if now.After(item.ExpiresAt) {
			delete(cs.cache, key)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	startTicker(ctx, interval, cs.CleanupExpired)
}

func startTicker(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// CalculateFileHash вычисляет хеш SHA256 содержимого файла
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// CalculateHashFromString вычисляет хеш SHA256 строки
func CalculateHashFromString(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

// CombineHashes вычисляет общий ключ для набора файлов и параметров анализа.
// Порядок файлов учитывается.
func CombineHashes(fileHashes []string, params ...string) string {
	return CalculateHashFromString(strings.Join(fileHashes, ",") + "|" + strings.Join(params, ","))
}
