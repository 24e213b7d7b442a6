package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/domain"
	applog "telegram-chat-stats/internal/log"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/ports"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

// newRootCmd собирает корневую команду со всеми подкомандами.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tgstats",
		Short: "Statistics for Telegram Desktop chat exports",
		Long: `tgstats reads result.json files exported by Telegram Desktop and prints
per-participant statistics, transcripts and reply chains.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat, "log format: text or json")

	rootCmd.AddCommand(
		newStatsCmd(opts),
		newTranscriptCmd(opts),
		newChatsCmd(opts),
		newChainCmd(opts),
	)
	return rootCmd
}

// logger пишет журнал в stderr команды, чтобы не смешивать его с отчетом.
func (o *rootOptions) logger(cmd *cobra.Command) (*slog.Logger, error) {
	return applog.NewLogger(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
}

// stdinPath - значение -i для чтения экспорта из stdin.
const stdinPath = "-"

// loadChat читает и разбирает один файл экспорта. Путь "-" означает stdin.
func loadChat(cmd *cobra.Command, path string) (*domain.ExportedChat, error) {
	var src ports.DataSource
	if path == stdinPath {
		if isTerminal(cmd.InOrStdin()) {
			return nil, errStdinIsTerminal
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать stdin: %w", err)
		}
		src = source.NewMemorySource(data)
	} else {
		src = source.NewFileSource(path)
	}

	data, err := src.Fetch()
	if err != nil {
		return nil, err
	}
	chat, err := parser.NewJsonParser().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chat, nil
}

// exportRoot возвращает каталог с экспортами: из флага или каталог по умолчанию.
func exportRoot(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return source.DefaultExportRoot()
}

// openOutput возвращает файл для записи или stdout команды, если путь пуст.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось создать файл %s: %w", path, err)
	}
	return file, file.Close, nil
}
