package bot

import (
	"sync"
	"time"
)

// activeTask - задача на бэкенде, запущенная для чата.
type activeTask struct {
	ID        string
	StartedAt time.Time
}

// TaskStore - это потокобезопасное in-memory хранилище для сопоставления
// идентификатора чата Telegram с активной задачей на бэкенд-сервере.
// На один чат допускается одна задача.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[int64]activeTask
}

// NewTaskStore создает новый экземпляр TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]activeTask),
	}
}

// Set сохраняет задачу для чата, перезаписывая предыдущую.
func (s *TaskStore) Set(chatID int64, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[chatID] = activeTask{ID: taskID, StartedAt: time.Now()}
}

// Get возвращает taskID для указанного chatID.
func (s *TaskStore) Get(chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[chatID]
	return task.ID, ok
}

// Elapsed возвращает время с момента запуска задачи чата.
func (s *TaskStore) Elapsed(chatID int64) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[chatID]
	if !ok {
		return 0, false
	}
	return time.Since(task.StartedAt), true
}

// Delete удаляет задачу для указанного chatID.
func (s *TaskStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, chatID)
}

// Len возвращает число активных задач.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
