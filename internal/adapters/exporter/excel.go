package exporter

import (
	"fmt"
	"io"
	"math"
	"telegram-chat-stats/internal/core/report"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/ports"
	"time"

	"github.com/xuri/excelize/v2"
)

// Имена листов книги с отчетом.
const (
	SummarySheet      = "Summary"
	ParticipantsSheet = "Participants"
	EntitiesSheet     = "Entities"
	WordsSheet        = "Words"
	ReactionsSheet    = "Reactions"
)

// ExcelExporter реализует интерфейс Exporter для выгрузки статистики в xlsx.
type ExcelExporter struct {
	w    io.Writer
	opts report.Options
}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter(w io.Writer, opts report.Options) ports.Exporter {
	return &ExcelExporter{w: w, opts: opts}
}

// Export строит книгу и записывает ее в w.
func (e *ExcelExporter) Export(cs *stats.ChatStats) error {
	f, err := BuildWorkbook(cs, e.opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(e.w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// BuildWorkbook строит книгу Excel со сводкой, участниками и сущностями.
// Листы со словами и реакциями добавляются при opts.IncludeTables.
func BuildWorkbook(cs *stats.ChatStats, opts report.Options) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := fillWorkbook(f, cs, opts); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func fillWorkbook(f *excelize.File, cs *stats.ChatStats, opts report.Options) error {
	combined := cs.Combined()

	summary := [][]any{
		{"Metric", "Value"},
		{"Total messages", cs.Messages + cs.ServiceMessages},
		{"Regular messages", cs.Messages},
		{"Service messages", cs.ServiceMessages},
		{"Edited messages", cs.Edited},
		{"Total reactions", combined.TotalReactions()},
		{"Participants", cs.Participants.Len()},
		{"Average length", combined.AvgChars()},
		{"Longest message", combined.MaxChars},
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	ranked := cs.Ranked()
	participants := [][]any{{"#", "Name", "Messages", "Total chars", "Average", "Longest", "First message", "Last message", "Share %"}}
	for i, p := range ranked {
		participants = append(participants, []any{
			i + 1,
			p.Name,
			p.Stats.Count,
			p.Stats.TotalChars,
			p.Stats.AvgChars(),
			p.Stats.MaxChars,
			formatOptionalTime(p.Stats.FirstMessage),
			formatOptionalTime(p.Stats.LastMessage),
			percent(p.Stats.TotalChars, combined.TotalChars),
		})
	}
	if err := addSheet(f, ParticipantsSheet, participants); err != nil {
		return err
	}

	entities := [][]any{{"Entity type", "Count"}}
	for _, e := range cs.EntityHistogram() {
		entities = append(entities, []any{e.Key, e.Count})
	}
	if err := addSheet(f, EntitiesSheet, entities); err != nil {
		return err
	}

	if !opts.IncludeTables {
		return nil
	}

	words := [][]any{{"Name", "Word", "Count"}}
	reactions := [][]any{{"Name", "Reaction", "Count"}}
	for _, p := range ranked {
		for _, w := range p.Stats.TopWords(cs.Settings.MaxWordsDisplayed) {
			words = append(words, []any{p.Name, w.Key, w.Count})
		}
		for _, r := range p.Stats.TopReactions() {
			reactions = append(reactions, []any{p.Name, r.Key, r.Count})
		}
	}
	if err := addSheet(f, WordsSheet, words); err != nil {
		return err
	}
	return addSheet(f, ReactionsSheet, reactions)
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on sheet %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return report.FormatTime(*t)
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(10000*float64(part)/float64(total)) / 100
}
