package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 50
	DefaultCleanupInterval = 1 * time.Hour
	DefaultTaskTTL         = 24 * time.Hour

	// Processing defaults
	DefaultTaskTimeout = 600 * time.Second
	DefaultCacheTTL    = 60 * time.Minute
	DefaultPoolSize    = 4

	// Stats defaults
	DefaultMaxWordsDisplayed        = 10
	DefaultMaxParticipantsDisplayed = 5
	DefaultStopWords                = "ru"

	// Transcript defaults
	DefaultReactorSeparator = ", "

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// DefaultConfigFile - файл конфигурации, который ищется в рабочем каталоге.
	DefaultConfigFile = "config.yml"
	// EnvPrefix - префикс переменных окружения, переопределяющих конфигурацию.
	EnvPrefix = "TGSTATS_"
)
