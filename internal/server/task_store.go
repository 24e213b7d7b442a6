package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"telegram-chat-stats/internal/core/stats"
	"time"
)

// ErrTaskNotFound возвращается, когда задачи с указанным ID нет в хранилище.
var ErrTaskNotFound = errors.New("задача не найдена")

// TaskStatus представляет статус задачи анализа
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task представляет собой одну задачу анализа
type Task struct {
	ID           string
	Status       TaskStatus
	Result       *stats.ChatStats
	ResultHash   string // ключ кэша, по которому результат можно получить повторно
	FileCount    int
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // Для автоматической очистки
}

// TaskStore управляет хранением и извлечением задач
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
	}
}

// CreateTask создает новую задачу со статусом 'pending'
func (ts *TaskStore) CreateTask(taskID string, fileCount int, ttl time.Duration) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		FileCount: fileCount,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// UpdateTaskStatus обновляет статус задачи
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = status
	})
}

// UpdateTaskResult сохраняет результат и переводит задачу в 'completed'
func (ts *TaskStore) UpdateTaskResult(taskID string, result *stats.ChatStats, hash string) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusCompleted
		task.Result = result
		task.ResultHash = hash
	})
}

// UpdateTaskError сохраняет сообщение об ошибке и переводит задачу в 'failed'
func (ts *TaskStore) UpdateTaskError(taskID string, errorMessage string) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusFailed
		task.ErrorMessage = errorMessage
	})
}

func (ts *TaskStore) update(taskID string, fn func(task *Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("задача с ID %s: %w", taskID, ErrTaskNotFound)
	}

	fn(task)
	return nil
}

// GetTask возвращает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("задача с ID %s: %w", taskID, ErrTaskNotFound)
	}

	return *task, nil
}

// Len возвращает число задач в хранилище
func (ts *TaskStore) Len() int {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	return len(ts.tasks)
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (ts *TaskStore) CleanupExpired() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, taskID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}
