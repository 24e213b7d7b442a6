package exporter

import (
	"io"
	"telegram-chat-stats/internal/core/report"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/ports"
)

// TextExporter реализует интерфейс Exporter для вывода текстового отчета.
type TextExporter struct {
	w io.Writer
}

// NewTextExporter создает TextExporter, пишущий отчет в w.
func NewTextExporter(w io.Writer) ports.Exporter {
	return &TextExporter{w: w}
}

// Export выводит текстовый отчет о статистике.
func (e *TextExporter) Export(cs *stats.ChatStats) error {
	return report.WriteText(e.w, cs)
}

// JSONExporter реализует интерфейс Exporter для вывода снимка статистики в JSON.
type JSONExporter struct {
	w    io.Writer
	opts report.Options
}

// NewJSONExporter создает новый экземпляр JSONExporter.
func NewJSONExporter(w io.Writer, opts report.Options) ports.Exporter {
	return &JSONExporter{w: w, opts: opts}
}

// Export выводит снимок статистики в JSON.
func (e *JSONExporter) Export(cs *stats.ChatStats) error {
	return report.WriteJSON(e.w, cs, e.opts)
}
