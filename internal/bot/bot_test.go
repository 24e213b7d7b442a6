package bot

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"telegram-chat-stats/cmd/bot/config"
	"telegram-chat-stats/internal/core/report"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockServerClient - это мок для ServerAPI.
type mockServerClient struct {
	startTaskFunc func(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error)
	snapshot      *report.Snapshot
	results       map[string][]byte
	resultErr     error
}

func (m *mockServerClient) StartTask(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error) {
	if m.startTaskFunc != nil {
		return m.startTaskFunc(ctx, files)
	}
	return &StartTaskResponse{TaskID: "mock-task-id"}, nil
}

func (m *mockServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	return &TaskStatusResponse{TaskID: taskID, Status: "processing"}, nil
}

func (m *mockServerClient) GetSnapshot(ctx context.Context, taskID string) (*report.Snapshot, error) {
	if m.snapshot == nil {
		return &report.Snapshot{}, nil
	}
	return m.snapshot, nil
}

func (m *mockServerClient) GetResult(ctx context.Context, taskID, format string) ([]byte, error) {
	if m.resultErr != nil {
		return nil, m.resultErr
	}
	return m.results[format], nil
}

// sentMessages собирает все, что бот отправил в Telegram.
type sentMessages struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	docs     []tgbotapi.DocumentConfig
}

func (s *sentMessages) send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := msg.(type) {
	case tgbotapi.MessageConfig:
		s.messages = append(s.messages, m)
	case tgbotapi.DocumentConfig:
		s.docs = append(s.docs, m)
	}
	return tgbotapi.Message{}, nil
}

func (s *sentMessages) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Text
	}
	return out
}

// newTestBot создает бота с моками для тестирования.
func newTestBot(t *testing.T, cfg config.BotConfig, serverClient ServerAPI) (*Bot, *sentMessages) {
	t.Helper()
	sent := &sentMessages{}
	bot := &Bot{
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    NewTaskStore(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pendingFiles: make(map[int64]*fileBatch),
		httpClient:   http.DefaultClient,
	}
	bot.sendMessageFunc = sent.send
	bot.getFileDirectURLFunc = func(fileID string) (string, error) { return "", nil }
	return bot, sent
}

func testConfig() config.BotConfig {
	return config.BotConfig{
		MaxFilesPerMessage:     3,
		FileBatchTimeoutSecs:   1,
		PollingIntervalSeconds: 60,
		ExcelThreshold:         3,
		TableRows:              2,
		Render: config.ColumnWidths{
			Rank:     config.DefaultRankColumnWidth,
			Name:     10,
			Messages: config.DefaultMessagesColumnWidth,
			Share:    config.DefaultShareColumnWidth,
		},
	}
}

func TestBot_HandleDocument_Batching(t *testing.T) {
	ctx := context.Background()

	// Имитирует API Telegram для скачивания файлов
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("content of " + r.URL.Path))
	}))
	defer ts.Close()

	t.Run("пачка из двух файлов уходит по таймауту", func(t *testing.T) {
		startTaskCalled := make(chan []DocumentFile, 1)
		mockClient := &mockServerClient{
			startTaskFunc: func(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error) {
				startTaskCalled <- files
				return &StartTaskResponse{TaskID: "test-task"}, nil
			},
		}

		bot, _ := newTestBot(t, testConfig(), mockClient)
		bot.httpClient = ts.Client()
		bot.getFileDirectURLFunc = func(fileID string) (string, error) { return ts.URL + "/" + fileID, nil }

		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 123}, Document: &tgbotapi.Document{FileID: "file1", FileName: "test1.json"}})
		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 123}, Document: &tgbotapi.Document{FileID: "file2", FileName: "test2.json"}})

		select {
		case files := <-startTaskCalled:
			require.Len(t, files, 2)
			names := []string{files[0].Name, files[1].Name}
			assert.ElementsMatch(t, []string{"test1.json", "test2.json"}, names)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for StartTask to be called")
		}

		assert.Eventually(t, func() bool {
			taskID, ok := bot.taskStore.Get(123)
			return ok && taskID == "test-task"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("пачка уходит сразу при достижении лимита", func(t *testing.T) {
		startTaskCalled := make(chan []DocumentFile, 1)
		mockClient := &mockServerClient{
			startTaskFunc: func(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error) {
				startTaskCalled <- files
				return &StartTaskResponse{TaskID: "test-task"}, nil
			},
		}

		cfg := testConfig()
		cfg.MaxFilesPerMessage = 2
		cfg.FileBatchTimeoutSecs = 60
		bot, _ := newTestBot(t, cfg, mockClient)
		bot.httpClient = ts.Client()
		bot.getFileDirectURLFunc = func(fileID string) (string, error) { return ts.URL + "/" + fileID, nil }

		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456}, Document: &tgbotapi.Document{FileID: "fileA", FileName: "A.json"}})
		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456}, Document: &tgbotapi.Document{FileID: "fileB", FileName: "B.json"}})

		select {
		case files := <-startTaskCalled:
			assert.Len(t, files, 2)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for immediate StartTask call")
		}
	})

	t.Run("новые файлы отклоняются, пока идет задача", func(t *testing.T) {
		bot, sent := newTestBot(t, testConfig(), &mockServerClient{})

		chatID := int64(789)
		bot.taskStore.Set(chatID, "some-active-task-id")

		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Document: &tgbotapi.Document{FileID: "fileX", FileName: "X.json"}})

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Пожалуйста, подождите завершения предыдущей задачи")
	})

	t.Run("превышение лимита файлов сбрасывает пачку", func(t *testing.T) {
		bot, sent := newTestBot(t, testConfig(), &mockServerClient{})

		chatID := int64(999)
		bot.pendingFilesMutex.Lock()
		bot.pendingFiles[chatID] = &fileBatch{
			docs: []*tgbotapi.Document{
				{FileID: "file1", FileName: "file1.json"},
				{FileID: "file2", FileName: "file2.json"},
				{FileID: "file3", FileName: "file3.json"},
			},
			timer: time.NewTimer(time.Hour),
		}
		bot.pendingFilesMutex.Unlock()

		bot.handleDocument(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Document: &tgbotapi.Document{FileID: "file4", FileName: "file4.json"}})

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Превышен лимит файлов в одном сообщении")
		assert.Contains(t, texts[0], "3 файлов")

		bot.pendingFilesMutex.Lock()
		_, exists := bot.pendingFiles[chatID]
		bot.pendingFilesMutex.Unlock()
		assert.False(t, exists)
	})

	t.Run("ошибка скачивания", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer failing.Close()

		bot, sent := newTestBot(t, testConfig(), &mockServerClient{})
		bot.getFileDirectURLFunc = func(fileID string) (string, error) { return failing.URL, nil }
		bot.pendingFiles[1] = &fileBatch{docs: []*tgbotapi.Document{{FileID: "f", FileName: "broken.json"}}}

		bot.processFileBatch(ctx, 1)

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "broken.json")
		_, active := bot.taskStore.Get(1)
		assert.False(t, active)
	})
}

func TestBot_ProcessFileBatch_Sorting(t *testing.T) {
	ctx := context.Background()

	contentMap := map[string][]byte{
		"file1.json": []byte(`{"name":"chat1","messages":[]}`),
		"file2.json": []byte(`{"name":"chat2","messages":[]}`),
		"file3.json": []byte(`{"name":"chat3","messages":[]}`),
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(contentMap[strings.TrimPrefix(r.URL.Path, "/")])
	}))
	defer ts.Close()

	received := make(chan []DocumentFile, 1)
	mockClient := &mockServerClient{
		startTaskFunc: func(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error) {
			received <- files
			return &StartTaskResponse{TaskID: "test-task"}, nil
		},
	}

	bot, _ := newTestBot(t, testConfig(), mockClient)
	bot.getFileDirectURLFunc = func(fileID string) (string, error) { return ts.URL + "/" + fileID, nil }

	chatID := int64(123)
	bot.pendingFiles[chatID] = &fileBatch{
		docs: []*tgbotapi.Document{
			{FileID: "file2.json", FileName: "file2.json"},
			{FileID: "file1.json", FileName: "file1.json"},
			{FileID: "file3.json", FileName: "file3.json"},
		},
	}

	bot.processFileBatch(ctx, chatID)

	var files []DocumentFile
	select {
	case files = <-received:
	case <-time.After(time.Second):
		t.Fatal("StartTask was not called")
	}
	require.Len(t, files, 3)

	for _, file := range files {
		content, err := io.ReadAll(file.Content)
		require.NoError(t, err)
		assert.Equal(t, contentMap[file.Name], content, "content mismatch for %s", file.Name)
	}

	type fileHash struct {
		name string
		hash string
	}
	var hashes []fileHash
	for name, content := range contentMap {
		hashes = append(hashes, fileHash{name: name, hash: fmt.Sprintf("%x", sha256.Sum256(content))})
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i].hash < hashes[j].hash })

	for i, expected := range hashes {
		assert.Equal(t, expected.name, files[i].Name, "file at position %d", i)
	}
}

func snapshotWith(names ...string) *report.Snapshot {
	snap := &report.Snapshot{Participants: make(map[string]report.ParticipantSnapshot)}
	for i, name := range names {
		count := int64(len(names) - i)
		snap.Participants[name] = report.ParticipantSnapshot{Count: count, TotalChars: count * 10}
		snap.Messages += count
	}
	return snap
}

func TestBot_ProcessCompletedTask(t *testing.T) {
	ctx := context.Background()

	t.Run("короткий отчет одним сообщением", func(t *testing.T) {
		client := &mockServerClient{
			snapshot: snapshotWith("Alice", "Bob"),
			results:  map[string][]byte{ResultFormatText: []byte("📊 Chat Statistics Summary\n<b>")},
		}
		bot, sent := newTestBot(t, testConfig(), client)

		bot.processCompletedTask(ctx, 1, "task")

		require.Len(t, sent.messages, 1)
		assert.Equal(t, tgbotapi.ModeHTML, sent.messages[0].ParseMode)
		assert.Equal(t, "<pre>📊 Chat Statistics Summary\n&lt;b&gt;</pre>", sent.messages[0].Text)
		assert.Empty(t, sent.docs)
	})

	t.Run("Excel при достижении порога", func(t *testing.T) {
		client := &mockServerClient{
			snapshot: snapshotWith("Alice", "Bob", "Carol"),
			results: map[string][]byte{
				ResultFormatText: []byte("report"),
				ResultFormatXLSX: []byte("xlsx-bytes"),
			},
		}
		bot, sent := newTestBot(t, testConfig(), client)

		bot.processCompletedTask(ctx, 1, "task")

		require.Len(t, sent.docs, 1)
		assert.Contains(t, sent.docs[0].Caption, "Участников: 3")
		file, ok := sent.docs[0].File.(tgbotapi.FileBytes)
		require.True(t, ok)
		assert.Equal(t, []byte("xlsx-bytes"), file.Bytes)
		assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	})

	t.Run("длинный отчет уходит файлом вместе с таблицей", func(t *testing.T) {
		long := strings.Repeat("- Top words: слово (1)\n", 400)
		client := &mockServerClient{
			snapshot: snapshotWith("Alice", "Bob"),
			results:  map[string][]byte{ResultFormatText: []byte(long)},
		}
		bot, sent := newTestBot(t, testConfig(), client)

		bot.processCompletedTask(ctx, 1, "task")

		require.Len(t, sent.messages, 1)
		assert.Contains(t, sent.messages[0].Text, "<pre><code>")
		assert.Contains(t, sent.messages[0].Text, "Alice")
		require.Len(t, sent.docs, 1)
		file := sent.docs[0].File.(tgbotapi.FileBytes)
		assert.Equal(t, long, string(file.Bytes))
		assert.True(t, strings.HasSuffix(file.Name, ".txt"))
	})

	t.Run("нет участников", func(t *testing.T) {
		bot, sent := newTestBot(t, testConfig(), &mockServerClient{})

		bot.processCompletedTask(ctx, 1, "task")

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "не найдено ни одного сообщения")
	})

	t.Run("ошибка получения отчета", func(t *testing.T) {
		client := &mockServerClient{snapshot: snapshotWith("Alice"), resultErr: fmt.Errorf("boom")}
		bot, sent := newTestBot(t, testConfig(), client)

		bot.processCompletedTask(ctx, 1, "task")

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Не удалось получить текстовый отчет")
	})
}

func TestRenderParticipantsTable(t *testing.T) {
	cfg := testConfig()
	snap := snapshotWith("Alice", "Bob", "Carol")

	table := renderParticipantsTable(snap, cfg.Render, cfg.TableRows)

	expected := "Участников: 3, сообщений: 6\n" +
		"<pre><code>" +
		"| #   | Name       | Msgs     | Share |\n" +
		"|-----|------------|----------|-------|\n" +
		"| 1   | Alice      | 3        | 50%   |\n" +
		"| 2   | Bob        | 2        | 33%   |\n" +
		"... and 1 more\n" +
		"</code></pre>"
	assert.Equal(t, expected, table)
}

func TestRenderParticipantsTable_WrapsLongNames(t *testing.T) {
	cfg := testConfig()
	snap := &report.Snapshot{Participants: map[string]report.ParticipantSnapshot{
		"Very Long Name <x>": {Count: 1, TotalChars: 0},
	}}

	table := renderParticipantsTable(snap, cfg.Render, cfg.TableRows)

	assert.Contains(t, table, "| 1   | Very Long  | 1        | 0%    |\n")
	assert.Contains(t, table, "|     | Name       |          |       |\n")
	assert.Contains(t, table, "|     | &lt;x&gt;  |          |       |\n")
}

func TestWrapString(t *testing.T) {
	testCases := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{"помещается", "short", 10, []string{"short"}},
		{"перенос по словам", "one two three", 7, []string{"one two", "three"}},
		{"длинное слово", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"широкие символы", "日本語テキスト", 6, []string{"日本語", "テキス", "ト"}},
		{"нулевая ширина", "anything", 0, []string{"anything"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wrapString(tc.in, tc.width))
		})
	}
}

func TestGeneratePadding(t *testing.T) {
	assert.Equal(t, "  ", generatePadding("abc", 5))
	assert.Equal(t, "", generatePadding("abcdef", 5))
	// CJK получает дополнительный пробел
	assert.Equal(t, "  ", generatePadding("日本", 5))
}

func TestTaskStore(t *testing.T) {
	store := NewTaskStore()

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Set(1, "task-1")
	taskID, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "task-1", taskID)
	elapsed, ok := store.Elapsed(1)
	assert.True(t, ok)
	assert.Less(t, elapsed, time.Minute)
	assert.Equal(t, 1, store.Len())

	store.Delete(1)
	_, ok = store.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}
