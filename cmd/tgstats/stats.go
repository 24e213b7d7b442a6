package main

import (
	"errors"
	"fmt"
	"io"
	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/adapters/source"
	"telegram-chat-stats/internal/core/report"
	"telegram-chat-stats/internal/core/services"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/domain"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/ports"

	"github.com/spf13/cobra"
)

// Форматы вывода команды stats.
const (
	formatText = "text"
	formatJSON = "json"
	formatXLSX = "xlsx"
)

var errNoExports = errors.New("не найдено ни одного экспорта")

type statsOptions struct {
	inputs        []string
	dir           string
	format        string
	out           string
	maxWords      int
	participants  int
	noEntities    bool
	tables        bool
	stopWords     string
	stopWordsFile string
	poolSize      int
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	defaults := config.Default()
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for one or more chat exports",
		Long: `Analyze the given result.json files together. Without -i every export found
under --dir (default ~/Downloads/Telegram Desktop) is analyzed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.inputs, "input", "i", nil, "path to result.json, - for stdin (repeatable)")
	flags.StringVar(&opts.dir, "dir", "", "directory with Telegram exports")
	flags.StringVarP(&opts.format, "output", "o", formatText, "output format: text, json or xlsx")
	flags.StringVar(&opts.out, "out", "", "write the report to a file")
	flags.IntVar(&opts.maxWords, "max-words", defaults.Stats.MaxWordsDisplayed, "top words shown per participant")
	flags.IntVar(&opts.participants, "participants", defaults.Stats.MaxParticipantsDisplayed, "participants shown in the text report")
	flags.BoolVar(&opts.noEntities, "no-entities", false, "hide the text entity histogram")
	flags.BoolVar(&opts.tables, "tables", defaults.Stats.IncludeTables, "include word and reaction tables in json and xlsx")
	flags.StringVar(&opts.stopWords, "stop-words", defaults.Stats.StopWords, "builtin stop words: ru, en or none")
	flags.StringVar(&opts.stopWordsFile, "stop-words-file", "", "file with stop words, one per line")
	flags.IntVar(&opts.poolSize, "pool-size", defaults.Processing.PoolSize, "number of analysis workers")

	return cmd
}

func runStats(cmd *cobra.Command, root *rootOptions, opts *statsOptions) error {
	switch opts.format {
	case formatText, formatJSON:
	case formatXLSX:
		if opts.out == "" {
			return fmt.Errorf("формат %s требует флага --out", formatXLSX)
		}
	default:
		return fmt.Errorf("неизвестный формат вывода: %q", opts.format)
	}
	if opts.poolSize <= 0 {
		return fmt.Errorf("--pool-size должен быть положительным")
	}

	logger, err := root.logger(cmd)
	if err != nil {
		return err
	}

	stopWords, err := resolveStopWords(opts.stopWords, opts.stopWordsFile)
	if err != nil {
		return err
	}

	paths := opts.inputs
	if len(paths) == 0 {
		dir, err := exportRoot(opts.dir)
		if err != nil {
			return err
		}
		if paths, err = source.NewDirSource(dir, logger).Paths(); err != nil {
			return err
		}
		logger.Info("Найдены экспорты", "dir", dir, "count", len(paths))
	}
	if len(paths) == 0 {
		return errNoExports
	}

	chats := make([]*domain.ExportedChat, 0, len(paths))
	for _, path := range paths {
		chat, err := loadChat(cmd, path)
		if err != nil {
			return err
		}
		chats = append(chats, chat)
	}

	settings := stats.Settings{
		MaxWordsDisplayed:        opts.maxWords,
		MaxParticipantsDisplayed: opts.participants,
		ShowEntityHistogram:      !opts.noEntities,
	}
	svc := services.NewAnalysisService(
		services.WithSettings(settings),
		services.WithStopWords(stopWords),
		services.WithPoolSize(opts.poolSize),
		services.WithTotalTimeout(config.DefaultTaskTimeout),
		services.WithLogger(logger),
	)

	result, err := svc.Analyze(cmd.Context(), chats)
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(cmd, opts.out)
	if err != nil {
		return err
	}
	if err := newExporter(opts.format, w, report.Options{IncludeTables: opts.tables}).Export(result); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// resolveStopWords выбирает набор стоп-слов: файл имеет приоритет над встроенным набором.
func resolveStopWords(lang, file string) (stats.StopWords, error) {
	if file != "" {
		return stats.LoadStopWords(file)
	}
	return stats.BuiltinStopWords(lang)
}

func newExporter(format string, w io.Writer, opts report.Options) ports.Exporter {
	switch format {
	case formatJSON:
		return exporter.NewJSONExporter(w, opts)
	case formatXLSX:
		return exporter.NewExcelExporter(w, opts)
	default:
		return exporter.NewTextExporter(w)
	}
}
