package config

// Default column widths for the participants table.
const (
	DefaultRankColumnWidth     = 3
	DefaultNameColumnWidth     = 22
	DefaultMessagesColumnWidth = 8
	DefaultShareColumnWidth    = 5
)

// Default limits for the bot.
const (
	DefaultPollingIntervalSeconds = 2
	DefaultExcelThreshold         = 50
	DefaultMaxFilesPerMessage     = 5
	DefaultFileBatchTimeoutSecs   = 3
	DefaultHTTPTimeoutSeconds     = 60
	DefaultTableRows              = 20
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "json"
)

// TokenEnv переопределяет bot.token из окружения.
const TokenEnv = "TGSTATS_BOT_TOKEN"
