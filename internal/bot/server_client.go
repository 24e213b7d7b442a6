package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"telegram-chat-stats/internal/core/report"
	"time"
)

// Форматы результата, которые отдает сервер
const (
	ResultFormatJSON = "json"
	ResultFormatText = "text"
	ResultFormatXLSX = "xlsx"
)

// ServerAPI описывает методы бэкенд-сервера, которые использует бот.
type ServerAPI interface {
	StartTask(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	GetSnapshot(ctx context.Context, taskID string) (*report.Snapshot, error)
	GetResult(ctx context.Context, taskID, format string) ([]byte, error)
}

// ServerClient - клиент для взаимодействия с API бэкенд-сервера.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ServerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// API-ответы
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResultHash   string `json:"result_hash,omitempty"`
}

// DocumentFile представляет файл для загрузки.
type DocumentFile struct {
	Name    string
	Content io.Reader
}

// StartTask отправляет один или несколько файлов на сервер для начала обработки.
func (c *ServerClient) StartTask(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for _, file := range files {
		fw, err := w.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file for %s: %w", file.Name, err)
		}
		if _, err = io.Copy(fw, file.Content); err != nil {
			return nil, fmt.Errorf("failed to copy file content for %s: %w", file.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/process", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result StartTaskResponse
	if err := c.doJSON(req, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result TaskStatusResponse
	if err := c.doJSON(req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSnapshot запрашивает снимок статистики выполненной задачи.
func (c *ServerClient) GetSnapshot(ctx context.Context, taskID string) (*report.Snapshot, error) {
	body, err := c.GetResult(ctx, taskID, ResultFormatJSON)
	if err != nil {
		return nil, err
	}

	var snapshot report.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetResult запрашивает результат выполненной задачи в указанном формате.
func (c *ServerClient) GetResult(ctx context.Context, taskID, format string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v1/tasks/%s/result?format=%s", c.baseURL, url.PathEscape(taskID), url.QueryEscape(format))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func (c *ServerClient) doJSON(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
