package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ColumnWidths определяет ширину колонок таблицы участников.
type ColumnWidths struct {
	Rank     int `yaml:"rank"`
	Name     int `yaml:"name"`
	Messages int `yaml:"messages"`
	Share    int `yaml:"share"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                  string       `yaml:"token"`
	BackendURL             string       `yaml:"backend_url"`
	PollingIntervalSeconds int          `yaml:"polling_interval_seconds"`
	ExcelThreshold         int          `yaml:"excel_threshold"`
	MaxFilesPerMessage     int          `yaml:"max_files_per_message"`
	FileBatchTimeoutSecs   int          `yaml:"file_batch_timeout_seconds"`
	HTTPTimeoutSeconds     int          `yaml:"http_timeout_seconds"`
	TableRows              int          `yaml:"table_rows"`
	Render                 ColumnWidths `yaml:"render"`
}

// Logging содержит настройки логирования бота.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot     BotConfig `yaml:"bot"`
	Logging Logging   `yaml:"logging"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Токен из переменной окружения имеет приоритет над файлом.
func LoadBotConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}

	if token := os.Getenv(TokenEnv); token != "" {
		cfg.Bot.Token = token
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	botCfg := &c.Bot
	if botCfg.PollingIntervalSeconds == 0 {
		botCfg.PollingIntervalSeconds = DefaultPollingIntervalSeconds
	}
	if botCfg.ExcelThreshold == 0 {
		botCfg.ExcelThreshold = DefaultExcelThreshold
	}
	if botCfg.MaxFilesPerMessage == 0 {
		botCfg.MaxFilesPerMessage = DefaultMaxFilesPerMessage
	}
	if botCfg.FileBatchTimeoutSecs == 0 {
		botCfg.FileBatchTimeoutSecs = DefaultFileBatchTimeoutSecs
	}
	if botCfg.HTTPTimeoutSeconds == 0 {
		botCfg.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if botCfg.TableRows == 0 {
		botCfg.TableRows = DefaultTableRows
	}
	if botCfg.Render.Rank == 0 {
		botCfg.Render.Rank = DefaultRankColumnWidth
	}
	if botCfg.Render.Name == 0 {
		botCfg.Render.Name = DefaultNameColumnWidth
	}
	if botCfg.Render.Messages == 0 {
		botCfg.Render.Messages = DefaultMessagesColumnWidth
	}
	if botCfg.Render.Share == 0 {
		botCfg.Render.Share = DefaultShareColumnWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if c.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("bot.polling_interval_seconds must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if c.MaxFilesPerMessage <= 0 {
		return fmt.Errorf("bot.max_files_per_message must be positive")
	}
	if c.FileBatchTimeoutSecs <= 0 {
		return fmt.Errorf("bot.file_batch_timeout_seconds must be positive")
	}
	if c.TableRows <= 0 {
		return fmt.Errorf("bot.table_rows must be positive")
	}
	return nil
}

// ValidateFull проверяет конфигурацию бота вместе с настройками логирования.
func (c *Config) ValidateFull() error {
	if err := c.Bot.Validate(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be one of: text, json")
	}
	return nil
}
