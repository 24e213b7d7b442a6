// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"telegram-chat-stats/internal/core/stats"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию сервера
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadSizeMB int64         `yaml:"max_upload_size_mb"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	TaskTTL         time.Duration `yaml:"task_ttl"`
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeout time.Duration `yaml:"task_timeout"` // 0 - без ограничений
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	// CacheDir включает дисковый кэш (pebble). Пустое значение - кэш в памяти.
	CacheDir string `yaml:"cache_dir"`
	PoolSize int    `yaml:"pool_size"`
}

// Stats содержит настройки подсчета статистики и отчета
type Stats struct {
	MaxWordsDisplayed        int    `yaml:"max_words_displayed"`
	MaxParticipantsDisplayed int    `yaml:"max_participants_displayed"`
	ShowEntityHistogram      bool   `yaml:"show_entity_histogram"`
	StopWords                string `yaml:"stop_words"` // ru, en, none
	StopWordsFile            string `yaml:"stop_words_file"`
	IncludeTables            bool   `yaml:"include_tables"`
}

// Transcript содержит настройки расшифровки чата
type Transcript struct {
	MaxMessages      int    `yaml:"max_messages"` // 0 - все сообщения
	ReactorSeparator string `yaml:"reactor_separator"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `yaml:"server"`
	Processing Processing `yaml:"processing"`
	Stats      Stats      `yaml:"stats"`
	Transcript Transcript `yaml:"transcript"`
	Logging    Logging    `yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadSizeMB: DefaultMaxUploadSizeMB,
			CleanupInterval: DefaultCleanupInterval,
			TaskTTL:         DefaultTaskTTL,
		},
		Processing: Processing{
			TaskTimeout: DefaultTaskTimeout,
			CacheTTL:    DefaultCacheTTL,
			PoolSize:    DefaultPoolSize,
		},
		Stats: Stats{
			MaxWordsDisplayed:        DefaultMaxWordsDisplayed,
			MaxParticipantsDisplayed: DefaultMaxParticipantsDisplayed,
			ShowEntityHistogram:      true,
			StopWords:                DefaultStopWords,
		},
		Transcript: Transcript{
			ReactorSeparator: DefaultReactorSeparator,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Default возвращает конфигурацию по умолчанию без чтения файлов и окружения
func Default() *Config {
	return defaultConfig()
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл
// (если он есть), затем переменные окружения и .env файл.
func LoadConfig(path string) (*Config, error) {
	// Отсутствие .env файла не является ошибкой
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigFile
	}

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}

	return cfg, nil
}

// loadFromYAML дополняет cfg значениями из YAML-файла. Отсутствие файла не ошибка.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return nil
}

// loadFromEnv переопределяет значения из переменных окружения с префиксом TGSTATS_
func loadFromEnv(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("недопустимый %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("недопустимый %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("недопустимый %s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	setString("SERVER_HOST", &cfg.Server.Host)
	setInt("SERVER_PORT", &cfg.Server.Port)
	setDuration("TASK_TIMEOUT", &cfg.Processing.TaskTimeout)
	setDuration("CACHE_TTL", &cfg.Processing.CacheTTL)
	setString("CACHE_DIR", &cfg.Processing.CacheDir)
	setInt("POOL_SIZE", &cfg.Processing.PoolSize)
	setInt("MAX_WORDS", &cfg.Stats.MaxWordsDisplayed)
	setInt("MAX_PARTICIPANTS", &cfg.Stats.MaxParticipantsDisplayed)
	setBool("SHOW_ENTITIES", &cfg.Stats.ShowEntityHistogram)
	setString("STOP_WORDS", &cfg.Stats.StopWords)
	setString("STOP_WORDS_FILE", &cfg.Stats.StopWordsFile)
	setBool("INCLUDE_TABLES", &cfg.Stats.IncludeTables)
	setInt("TRANSCRIPT_MAX", &cfg.Transcript.MaxMessages)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	return errors.Join(errs...)
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StatsSettings возвращает настройки отчета для ChatStats
func (c *Config) StatsSettings() stats.Settings {
	return stats.Settings{
		MaxWordsDisplayed:        c.Stats.MaxWordsDisplayed,
		MaxParticipantsDisplayed: c.Stats.MaxParticipantsDisplayed,
		ShowEntityHistogram:      c.Stats.ShowEntityHistogram,
	}
}

// LoadStopWords возвращает набор стоп-слов: из файла, если он указан,
// иначе встроенный набор для языка.
func (c *Config) LoadStopWords() (stats.StopWords, error) {
	if c.Stats.StopWordsFile != "" {
		return stats.LoadStopWords(c.Stats.StopWordsFile)
	}
	return stats.BuiltinStopWords(c.Stats.StopWords)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval должно быть положительным")
	}

	if c.Processing.TaskTimeout < 0 {
		return fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTL <= 0 {
		return fmt.Errorf("processing.cache_ttl должно быть положительным")
	}

	if c.Processing.PoolSize <= 0 {
		return fmt.Errorf("processing.pool_size должно быть положительным")
	}

	if c.Stats.MaxWordsDisplayed < 0 {
		return fmt.Errorf("stats.max_words_displayed должно быть неотрицательным")
	}

	if c.Stats.MaxParticipantsDisplayed < 0 {
		return fmt.Errorf("stats.max_participants_displayed должно быть неотрицательным")
	}

	if c.Stats.StopWordsFile == "" {
		if _, err := stats.BuiltinStopWords(c.Stats.StopWords); err != nil {
			return fmt.Errorf("stats.stop_words должен быть одним из: ru, en, none")
		}
	}

	if c.Transcript.MaxMessages < 0 {
		return fmt.Errorf("transcript.max_messages должно быть неотрицательным (0 для всех сообщений)")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	return nil
}
