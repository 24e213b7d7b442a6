package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"telegram-chat-stats/internal/adapters/exporter"
	"telegram-chat-stats/internal/core/report"
	"telegram-chat-stats/internal/core/stats"
	"telegram-chat-stats/internal/core/transcript"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/server/usecase"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Форматы результата задачи
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatXLSX = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ChatAnalyzer определяет интерфейс варианта использования, который считает статистику.
type ChatAnalyzer interface {
	AnalyzeChats(ctx context.Context, filePaths []string) (usecase.Result, error)
	Lookup(hash string) (*stats.ChatStats, bool)
	RenderTranscript(filePath string, w io.Writer, opts ...transcript.Option) error
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	analyzer   ChatAnalyzer
	metrics    *metrics
	logger     *slog.Logger
}

// New создает новый экземпляр Server. Тикер очистки задач живет до отмены ctx.
func New(ctx context.Context, cfg *config.Config, analyzer ChatAnalyzer, taskStore *TaskStore, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("конфигурация не задана")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		taskStore: taskStore,
		analyzer:  analyzer,
		metrics:   newMetrics(),
		logger:    logger.With("component", "http_server"),
	}

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Запуск тикера для очистки просроченных задач
	s.taskStore.StartCleanupTicker(ctx, cfg.Server.CleanupInterval)

	return s, nil
}

// Handler возвращает корневой обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.HTTPServer.Handler
}

func (s *Server) routes() http.Handler {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	chiRouter.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/process-by-hash", s.handleProcessByHash)
		r.Post("/transcript", s.handleTranscript)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
	})

	return chiRouter
}

// handleProcess принимает один или несколько файлов экспорта и запускает задачу анализа
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSizeMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		http.Error(w, "Не удалось получить файлы из формы", http.StatusBadRequest)
		return
	}

	// Генерация уникального идентификатора задачи
	taskID := uuid.NewString()

	tempDir, err := os.MkdirTemp("", "tgstats_"+taskID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Не удалось создать временный каталог", "error", err)
		http.Error(w, "Не удалось сохранить загруженные файлы", http.StatusInternalServerError)
		return
	}

	paths := make([]string, 0, len(headers))
	for i, header := range headers {
		path := filepath.Join(tempDir, fmt.Sprintf("chat_%d.json", i))
		if err := saveUpload(header, path); err != nil {
			os.RemoveAll(tempDir)
			s.logger.ErrorContext(r.Context(), "Не удалось сохранить загруженный файл", "file", header.Filename, "error", err)
			http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
			return
		}
		paths = append(paths, path)
	}
	s.logger.InfoContext(r.Context(), "Файлы получены сервером", "task_id", taskID, "files", len(paths))

	s.taskStore.CreateTask(taskID, len(paths), s.cfg.Server.TaskTTL)
	s.metrics.tasksCreated.WithLabelValues("upload").Inc()

	go s.runTask(taskID, tempDir, paths)

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) runTask(taskID, tempDir string, paths []string) {
	defer os.RemoveAll(tempDir)
	s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

	// Контекст задачи с таймаутом из конфигурации, 0 - без ограничений
	taskCtx := context.Background()
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	started := time.Now()
	res, err := s.analyzer.AnalyzeChats(taskCtx, paths)
	s.metrics.taskDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.logger.ErrorContext(taskCtx, "Задача завершилась с ошибкой", "task_id", taskID, "error", err)
		s.taskStore.UpdateTaskError(taskID, err.Error())
		s.metrics.tasksFinished.WithLabelValues(string(TaskStatusFailed)).Inc()
		return
	}

	s.taskStore.UpdateTaskResult(taskID, res.Stats, res.Hash)
	s.metrics.tasksFinished.WithLabelValues(string(TaskStatusCompleted)).Inc()
	s.logger.InfoContext(taskCtx, "Задача выполнена", "task_id", taskID, "hash", res.Hash, "cached", res.Cached)
}

// handleProcessByHash создает задачу из ранее посчитанного результата
func (s *Server) handleProcessByHash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}
	if req.Hash == "" {
		http.Error(w, "Требуется хеш", http.StatusBadRequest)
		return
	}

	taskID := uuid.NewString()
	s.taskStore.CreateTask(taskID, 0, s.cfg.Server.TaskTTL)
	s.metrics.tasksCreated.WithLabelValues("hash").Inc()

	// Поиск в кэше не блокирует, поэтому задача завершается сразу
	if cached, found := s.analyzer.Lookup(req.Hash); found {
		s.taskStore.UpdateTaskResult(taskID, cached, req.Hash)
		s.metrics.cacheLookups.WithLabelValues("hit").Inc()
		s.metrics.tasksFinished.WithLabelValues(string(TaskStatusCompleted)).Inc()
		s.logger.InfoContext(r.Context(), "Попадание в кэш для хеша", "hash", req.Hash, "task_id", taskID)
	} else {
		s.taskStore.UpdateTaskError(taskID, "Результат для данного хеша не найден в кэше")
		s.metrics.cacheLookups.WithLabelValues("miss").Inc()
		s.metrics.tasksFinished.WithLabelValues(string(TaskStatusFailed)).Inc()
		s.logger.InfoContext(r.Context(), "Промах кэша для хеша", "hash", req.Hash, "task_id", taskID)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

// handleTranscript возвращает расшифровку одного файла экспорта
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	opts := []transcript.Option{
		transcript.WithMaxMessages(s.cfg.Transcript.MaxMessages),
		transcript.WithReactorSeparator(s.cfg.Transcript.ReactorSeparator),
	}
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Некорректный параметр max", http.StatusBadRequest)
			return
		}
		opts = append(opts, transcript.WithMaxMessages(n))
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSizeMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
		return
	}

	tempFile, err := os.CreateTemp("", "tgstats_transcript_*.json")
	if err != nil {
		http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
		return
	}
	tempFile.Close()
	defer os.Remove(tempFile.Name())

	if err := saveUpload(headers[0], tempFile.Name()); err != nil {
		http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
		return
	}

	var body bytes.Buffer
	if err := s.analyzer.RenderTranscript(tempFile.Name(), &body, opts...); err != nil {
		s.logger.WarnContext(r.Context(), "Не удалось построить расшифровку", "error", err)
		http.Error(w, "Не удалось разобрать файл экспорта", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body.Bytes())
}

// handleTaskStatus возвращает статус задачи
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":       task.ID,
		"status":        task.Status,
		"error_message": task.ErrorMessage,
		"result_hash":   task.ResultHash,
		"file_count":    task.FileCount,
	})
}

// handleTaskResult отдает результат задачи в запрошенном формате
func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusConflict)
		return
	}

	opts := report.Options{IncludeTables: s.cfg.Stats.IncludeTables}
	if raw := r.URL.Query().Get("tables"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Некорректный параметр tables", http.StatusBadRequest)
			return
		}
		opts.IncludeTables = include
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}

	var (
		body        bytes.Buffer
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		contentType = "application/json"
		err = report.WriteJSON(&body, task.Result, opts)
	case FormatText:
		contentType = "text/plain; charset=utf-8"
		err = report.WriteText(&body, task.Result)
	case FormatXLSX:
		contentType = xlsxContentType
		err = exporter.NewExcelExporter(&body, opts).Export(task.Result)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "stats_"+task.ID+".xlsx"))
	default:
		http.Error(w, "Неизвестный формат результата", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Не удалось сформировать результат", "task_id", task.ID, "format", format, "error", err)
		http.Error(w, "Не удалось сформировать результат", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body.Bytes())
}

func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (Task, bool) {
	taskID := chi.URLParam(r, "taskID")

	task, err := s.taskStore.GetTask(taskID)
	if errors.Is(err, ErrTaskNotFound) {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return Task{}, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return Task{}, false
	}
	return task, true
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

func saveUpload(header *multipart.FileHeader, path string) error {
	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("не удалось открыть загруженный файл: %w", err)
	}
	defer file.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return fmt.Errorf("не удалось сохранить загруженный файл: %w", err)
	}
	return out.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
