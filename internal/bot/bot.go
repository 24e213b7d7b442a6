package bot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"telegram-chat-stats/cmd/bot/config"
	"telegram-chat-stats/internal/core/report"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand = "start"
	helpCommand  = "help"

	// maxMessageLength - ограничение Telegram на длину сообщения
	maxMessageLength = 4096
)

const helpText = "Отправьте мне один или несколько JSON-файлов экспорта чата из Telegram Desktop " +
	"(формат «Машиночитаемый JSON»), и я посчитаю статистику: число сообщений, " +
	"самых активных участников, популярные слова и реакции.\n\n" +
	"Несколько файлов, отправленных подряд, объединяются в один отчет."

// fileBatch - файлы, присланные одним пользователем подряд.
type fileBatch struct {
	docs  []*tgbotapi.Document
	timer *time.Timer
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger
	httpClient   *http.Client

	pendingFiles      map[int64]*fileBatch
	pendingFilesMutex sync.Mutex

	// Подменяются в тестах
	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := &Bot{
		api:          api,
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		httpClient:   &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second},
		pendingFiles: make(map[int64]*fileBatch),
	}
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL

	return b, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			b.stopPendingBatches()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// stopPendingBatches отменяет таймеры еще не отправленных пачек файлов.
func (b *Bot) stopPendingBatches() {
	b.pendingFilesMutex.Lock()
	defer b.pendingFilesMutex.Unlock()
	for chatID, batch := range b.pendingFiles {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		delete(b.pendingFiles, chatID)
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, "Пожалуйста, отправьте мне JSON-файл с историей чата, выгруженный из Telegram."))
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, "Добро пожаловать! Я бот для статистики чатов Telegram.\n\n"+helpText))
	case helpCommand:
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, helpText))
	default:
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, "Я не знаю такой команды."))
	}
}

// handleDocument добавляет документ в пачку файлов чата. Пачка отправляется на
// сервер, когда набирается лимит файлов или истекает таймаут ожидания.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	if _, ok := b.taskStore.Get(chatID); ok {
		logger.Warn("user tried to start a new task while another is active")
		b.sendMessage(tgbotapi.NewMessage(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем отправлять новые файлы."))
		return
	}

	b.pendingFilesMutex.Lock()
	batch, exists := b.pendingFiles[chatID]
	if !exists {
		batch = &fileBatch{}
		b.pendingFiles[chatID] = batch
	}

	if len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		delete(b.pendingFiles, chatID)
		b.pendingFilesMutex.Unlock()

		logger.Warn("file limit exceeded", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Превышен лимит файлов в одном сообщении: можно отправить не более %d файлов. Отправьте файлы заново.",
			b.cfg.MaxFilesPerMessage,
		)))
		return
	}

	batch.docs = append(batch.docs, msg.Document)
	if batch.timer != nil {
		batch.timer.Stop()
	}

	if len(batch.docs) == b.cfg.MaxFilesPerMessage {
		b.pendingFilesMutex.Unlock()
		logger.Debug("file limit reached, sending batch")
		go b.processFileBatch(ctx, chatID)
		return
	}

	batch.timer = time.AfterFunc(time.Duration(b.cfg.FileBatchTimeoutSecs)*time.Second, func() {
		b.processFileBatch(ctx, chatID)
	})
	b.pendingFilesMutex.Unlock()
	logger.Debug("file added to batch", slog.Int("files", len(batch.docs)))
}

type downloadedFile struct {
	name    string
	content []byte
	hash    string
}

// processFileBatch скачивает файлы пачки и запускает задачу на бэкенде.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	delete(b.pendingFiles, chatID)
	b.pendingFilesMutex.Unlock()

	if !ok || len(batch.docs) == 0 {
		return
	}

	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.Int("files", len(batch.docs)))

	files := make([]downloadedFile, 0, len(batch.docs))
	for _, doc := range batch.docs {
		content, err := b.downloadFile(ctx, doc.FileID)
		if err != nil {
			logger.Error("failed to download file", slog.String("file", doc.FileName), slog.String("error", err.Error()))
			b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Не удалось скачать файл %s. Попробуйте отправить его еще раз.", doc.FileName)))
			return
		}
		sum := sha256.Sum256(content)
		files = append(files, downloadedFile{name: doc.FileName, content: content, hash: hex.EncodeToString(sum[:])})
	}

	// Порядок файлов входит в ключ кэша на сервере
	sort.Slice(files, func(i, j int) bool {
		return files[i].hash < files[j].hash
	})

	docs := make([]DocumentFile, len(files))
	for i, f := range files {
		docs[i] = DocumentFile{Name: f.name, Content: bytes.NewReader(f.content)}
	}

	startResp, err := b.serverClient.StartTask(ctx, docs)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось начать обработку файлов на сервере. Пожалуйста, попробуйте позже."))
		return
	}

	taskID := startResp.TaskID
	logger.Info("task started on backend", slog.String("task_id", taskID))

	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID)

	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Получено файлов: %d. Считаю статистику, ожидайте результата.", len(files))))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.getFileDirectURLFunc(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID)

	ticker := time.NewTicker(time.Duration(b.cfg.PollingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			logger.Debug("polling task status")
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				continue
			}

			switch status.Status {
			case "completed":
				elapsed, _ := b.taskStore.Elapsed(chatID)
				logger.Info("task completed", slog.Duration("elapsed", elapsed))
				b.processCompletedTask(ctx, chatID, taskID)
				return
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Произошла ошибка при обработке файла: %s", status.ErrorMessage)))
				return
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask отправляет пользователю результат выполненной задачи.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))

	snapshot, err := b.serverClient.GetSnapshot(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch snapshot", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже."))
		return
	}

	participants := len(snapshot.Participants)
	logger.Info("fetched snapshot", slog.Int("participants", participants), slog.Int64("messages", snapshot.Messages))

	if participants == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "В предоставленных файлах не найдено ни одного сообщения участников."))
		return
	}

	textReport, err := b.serverClient.GetResult(ctx, taskID, ResultFormatText)
	if err != nil {
		logger.Error("failed to fetch text report", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось получить текстовый отчет. Пожалуйста, попробуйте позже."))
		return
	}
	b.sendTextResult(chatID, string(textReport), snapshot)

	if participants >= b.cfg.ExcelThreshold {
		logger.Info("participant count is over threshold, sending excel file")
		b.sendExcelResult(ctx, chatID, taskID, participants)
	}
}

// sendTextResult отправляет текстовый отчет сообщением, а если он не помещается -
// таблицу лидеров сообщением и полный отчет файлом.
func (b *Bot) sendTextResult(chatID int64, text string, snapshot *report.Snapshot) {
	formatted := "<pre>" + html.EscapeString(strings.ToValidUTF8(text, "")) + "</pre>"
	if len(formatted) <= maxMessageLength {
		reply := tgbotapi.NewMessage(chatID, formatted)
		reply.ParseMode = tgbotapi.ModeHTML
		b.sendMessage(reply)
		return
	}

	b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(formatted))

	table := renderParticipantsTable(snapshot, b.cfg.Render, b.cfg.TableRows)
	if len(table) <= maxMessageLength {
		reply := tgbotapi.NewMessage(chatID, table)
		reply.ParseMode = tgbotapi.ModeHTML
		b.sendMessage(reply)
	}

	b.sendResultAsTextFile(chatID, text, len(snapshot.Participants))
}

func (b *Bot) sendExcelResult(ctx context.Context, chatID int64, taskID string, participants int) {
	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Участников: %d. Формирую Excel-файл...", participants)))

	workbook, err := b.serverClient.GetResult(ctx, taskID, ResultFormatXLSX)
	if err != nil {
		b.logger.Error("failed to fetch excel report", slog.String("task_id", taskID), slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось сгенерировать Excel-файл."))
		return
	}

	fileName := fmt.Sprintf("chat_stats_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: workbook})
	msg.Caption = fmt.Sprintf("Анализ завершен. Участников: %d.", participants)
	b.sendMessage(msg)
}

// sendResultAsTextFile отправляет полный отчет в виде текстового файла.
func (b *Bot) sendResultAsTextFile(chatID int64, text string, participants int) {
	fileName := fmt.Sprintf("chat_stats_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: []byte(text)})
	msg.Caption = fmt.Sprintf("Анализ завершен. Участников: %d. Отчет слишком большой для одного сообщения, поэтому он прикреплен в виде файла.", participants)
	b.sendMessage(msg)
}

type tableRow struct {
	name     string
	messages int64
	chars    int64
}

// renderParticipantsTable строит таблицу лидеров в HTML-блоке <pre>.
func renderParticipantsTable(snapshot *report.Snapshot, widths config.ColumnWidths, maxRows int) string {
	rows := make([]tableRow, 0, len(snapshot.Participants))
	var totalChars int64
	for name, p := range snapshot.Participants {
		rows = append(rows, tableRow{name: name, messages: p.Count, chars: p.TotalChars})
		totalChars += p.TotalChars
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].messages != rows[j].messages {
			return rows[i].messages > rows[j].messages
		}
		return rows[i].name < rows[j].name
	})

	shown := min(len(rows), maxRows)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Участников: %d, сообщений: %d\n", len(rows), snapshot.Messages)
	sb.WriteString("<pre><code>")

	cols := []int{widths.Rank, widths.Name, widths.Messages, widths.Share}
	writeTableLine(&sb, cols, [][]string{{"#"}, {"Name"}, {"Msgs"}, {"Share"}})

	separator := make([]string, len(cols))
	for i, w := range cols {
		separator[i] = strings.Repeat("-", w+2)
	}
	sb.WriteString("|" + strings.Join(separator, "|") + "|\n")

	for i, row := range rows[:shown] {
		name := html.EscapeString(strings.ReplaceAll(strings.ToValidUTF8(row.name, ""), "\n", " "))
		share := "0%"
		if totalChars > 0 {
			share = fmt.Sprintf("%.0f%%", 100*float64(row.chars)/float64(totalChars))
		}
		writeTableLine(&sb, cols, [][]string{
			{fmt.Sprint(i + 1)},
			wrapString(name, widths.Name),
			{fmt.Sprint(row.messages)},
			{share},
		})
	}
	if rest := len(rows) - shown; rest > 0 {
		fmt.Fprintf(&sb, "... and %d more\n", rest)
	}
	sb.WriteString("</code></pre>")

	return sb.String()
}

// writeTableLine печатает одну строку таблицы; ячейки могут занимать несколько строк.
func writeTableLine(sb *strings.Builder, widths []int, cells [][]string) {
	lines := 0
	for _, c := range cells {
		lines = max(lines, len(c))
	}

	for i := 0; i < lines; i++ {
		for col, c := range cells {
			part := ""
			if i < len(c) {
				part = c[i]
			}
			fmt.Fprintf(sb, "| %s%s ", part, generatePadding(part, widths[col]))
		}
		sb.WriteString("|\n")
	}
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Некоторые клиенты рисуют CJK-символы шире, чем считает runewidth.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString переносит строку по словам так, чтобы каждая строка занимала не
// больше width ячеек. Слово длиннее width разрывается посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return splitByWidth(s, width)
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitByWidth(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

// splitByWidth режет строку на куски шириной не больше width.
func splitByWidth(s string, width int) []string {
	var lines []string
	runes := []rune(s)
	for len(runes) > 0 {
		i := 0
		currentWidth := 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width {
				break
			}
			currentWidth += rw
			i++
		}
		if i == 0 {
			// Символ шире колонки
			i = 1
		}
		lines = append(lines, string(runes[:i]))
		runes = runes[i:]
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
