package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"telegram-chat-stats/internal/adapters/parser"
	"telegram-chat-stats/internal/cache"
	"telegram-chat-stats/internal/core/services"
	"telegram-chat-stats/internal/pkg/config"
	"telegram-chat-stats/internal/server/usecase"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const aliceAndBobJSON = `{
  "name": "Test",
  "type": "personal_chat",
  "id": 1,
  "messages": [
    {"id": 1, "type": "message", "date": "2024-03-01T10:00:00", "date_unixtime": "1709287200", "from": "Alice", "from_id": "user1", "text": "Hi there", "text_entities": []},
    {"id": 2, "type": "message", "date": "2024-03-01T10:01:00", "date_unixtime": "1709287260", "from": "Bob", "from_id": "user2", "reply_to_message_id": 1, "text": "Hello!", "text_entities": [],
     "reactions": [{"type": "emoji", "count": 1, "emoji": "👍", "recent": [{"from": "Alice", "from_id": "user1", "date": "2024-03-01T10:02:00"}]}]}
  ]
}`

const carolJSON = `{
  "name": "Other",
  "type": "private_group",
  "id": 2,
  "messages": [
    {"id": 1, "type": "service", "date": "2024-03-02T09:00:00", "actor": "Carol", "actor_id": "user3", "action": "create_group", "text": ""},
    {"id": 2, "type": "message", "date": "2024-03-02T09:01:00", "date_unixtime": "1709370060", "from": "Carol", "from_id": "user3", "text": "Morning", "text_entities": []}
  ]
}`

type testEnv struct {
	srv       *Server
	taskStore *TaskStore
	cache     *cache.CacheStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cacheStore := cache.NewCacheStore()
	taskStore := NewTaskStore()
	uc := usecase.NewAnalyzeChatsUseCase(
		parser.NewJsonParser(),
		services.NewAnalysisService(services.WithPoolSize(2)),
		cacheStore,
		time.Minute,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := New(ctx, cfg, uc, taskStore, nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, taskStore: taskStore, cache: cacheStore}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func multipartBody(t *testing.T, field string, contents ...string) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	for i, content := range contents {
		fw, err := writer.CreateFormFile(field, "result"+string(rune('0'+i))+".json")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &b, writer.FormDataContentType()
}

func (e *testEnv) startTask(t *testing.T, contents ...string) string {
	t.Helper()
	body, contentType := multipartBody(t, "files", contents...)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	req.Header.Set("Content-Type", contentType)

	rr := e.do(req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp["task_id"])
	return resp["task_id"]
}

func (e *testEnv) waitFor(t *testing.T, taskID string, status TaskStatus) Task {
	t.Helper()
	require.Eventually(t, func() bool {
		task, err := e.taskStore.GetTask(taskID)
		return err == nil && task.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	task, _ := e.taskStore.GetTask(taskID)
	return task
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_TaskLifecycle(t *testing.T) {
	env := newTestEnv(t)

	taskID := env.startTask(t, aliceAndBobJSON, carolJSON)
	task := env.waitFor(t, taskID, TaskStatusCompleted)
	assert.Equal(t, 2, task.FileCount)
	assert.NotEmpty(t, task.ResultHash)

	t.Run("статус задачи", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID, nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "completed", resp["status"])
		assert.Equal(t, task.ResultHash, resp["result_hash"])
	})

	t.Run("результат в JSON", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var snapshot struct {
			Messages        int64                     `json:"messages"`
			ServiceMessages int64                     `json:"service_messages"`
			Participants    map[string]map[string]any `json:"participants"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&snapshot))
		assert.Equal(t, int64(3), snapshot.Messages)
		assert.Equal(t, int64(1), snapshot.ServiceMessages)
		assert.Len(t, snapshot.Participants, 3)
		assert.NotContains(t, snapshot.Participants["Alice"], "words")
	})

	t.Run("результат в JSON с таблицами", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result?tables=true", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"words"`)
	})

	t.Run("результат текстом", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result?format=text", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, strings.HasPrefix(rr.Body.String(), "📊"))
		assert.Contains(t, rr.Body.String(), "Top Participants (3)")
	})

	t.Run("результат в XLSX", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result?format=xlsx", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(rr.Body)
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Participants")
	})

	t.Run("неизвестный формат", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result?format=pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("некорректный параметр tables", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+taskID+"/result?tables=maybe", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("повторная загрузка берется из кэша", func(t *testing.T) {
		second := env.startTask(t, aliceAndBobJSON, carolJSON)
		secondTask := env.waitFor(t, second, TaskStatusCompleted)
		assert.Equal(t, task.ResultHash, secondTask.ResultHash)
		assert.Equal(t, 1, env.cache.Len())
	})

	t.Run("задача по хешу", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/process-by-hash",
			strings.NewReader(`{"hash":"`+task.ResultHash+`"}`)))
		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		byHash := env.waitFor(t, resp["task_id"], TaskStatusCompleted)
		assert.Same(t, task.Result, byHash.Result)
	})

	t.Run("метрики", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `tgstats_tasks_created_total{kind="upload"} 2`)
		assert.Contains(t, rr.Body.String(), `tgstats_cache_lookups_total{outcome="hit"} 1`)
	})
}

func TestServer_Errors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("неизвестная задача", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing/result", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("результат еще не готов", func(t *testing.T) {
		env.taskStore.CreateTask("pending", 1, time.Minute)
		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/tasks/pending/result", nil))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("форма без файлов", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader("not a form"))
		req.Header.Set("Content-Type", "text/plain")
		rr := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("некорректный файл завершает задачу ошибкой", func(t *testing.T) {
		taskID := env.startTask(t, "not json")
		task := env.waitFor(t, taskID, TaskStatusFailed)
		assert.Contains(t, task.ErrorMessage, "не удалось разобрать данные")
	})

	t.Run("хеш без тела", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/process-by-hash", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("промах кэша по хешу", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/process-by-hash", strings.NewReader(`{"hash":"unknown"}`)))
		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		task := env.waitFor(t, resp["task_id"], TaskStatusFailed)
		assert.NotEmpty(t, task.ErrorMessage)
	})
}

func TestServer_Transcript(t *testing.T) {
	env := newTestEnv(t)

	t.Run("расшифровка с ограничением", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", aliceAndBobJSON)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcript?max=1", body)
		req.Header.Set("Content-Type", contentType)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[2024-03-01 10:00:00] @Alice: Hi there\n", rr.Body.String())
	})

	t.Run("полная расшифровка", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", aliceAndBobJSON)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcript", body)
		req.Header.Set("Content-Type", contentType)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "  ↳ [reaction: 👍 by @Alice]\n")
	})

	t.Run("некорректный max", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", aliceAndBobJSON)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transcript?max=-1", body)
		req.Header.Set("Content-Type", contentType)

		rr := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
