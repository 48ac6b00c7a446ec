package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore implements the TaskStore interface for testing.
type MockTaskStore struct {
	mutex           sync.RWMutex
	records         map[uuid.UUID]TaskRecord
	taskStatusTimes map[uuid.UUID]time.Time
	SaveFn          func(ctx context.Context, task Task) error
	UpdateStatusFn  func(ctx context.Context, taskID uuid.UUID, status TaskStatus, retryCount int, errorMsg string) error
}

// NewMockTaskStore creates a new MockTaskStore with default implementations.
func NewMockTaskStore() *MockTaskStore {
	store := &MockTaskStore{
		records:         make(map[uuid.UUID]TaskRecord),
		taskStatusTimes: make(map[uuid.UUID]time.Time),
	}

	store.SaveFn = func(ctx context.Context, task Task) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		now := time.Now()
		store.records[task.ID()] = TaskRecord{
			ID:        task.ID(),
			Kind:      task.Kind(),
			Payload:   task.Payload(),
			Status:    TaskStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		store.taskStatusTimes[task.ID()] = now
		return nil
	}

	store.UpdateStatusFn = func(ctx context.Context, taskID uuid.UUID, status TaskStatus, retryCount int, errorMsg string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		record, exists := store.records[taskID]
		if !exists {
			return nil
		}
		record.Status = status
		record.RetryCount = retryCount
		record.LastError = errorMsg
		record.UpdatedAt = time.Now()
		store.records[taskID] = record
		store.taskStatusTimes[taskID] = time.Now()
		return nil
	}

	return store
}

// SaveTask persists a task to the mock store.
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	return s.SaveFn(ctx, task)
}

// UpdateTaskStatus updates the status of a task in the mock store.
func (s *MockTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	retryCount int,
	errorMsg string,
) error {
	return s.UpdateStatusFn(ctx, taskID, status, retryCount, errorMsg)
}

// GetPendingTasks retrieves all records with "pending" status.
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]TaskRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var pending []TaskRecord
	for _, record := range s.records {
		if record.Status == TaskStatusPending {
			pending = append(pending, record)
		}
	}
	return pending, nil
}

// GetProcessingTasks retrieves records with "processing" status, optionally
// only those older than the given duration.
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var processing []TaskRecord
	now := time.Now()
	for _, record := range s.records {
		if record.Status != TaskStatusProcessing {
			continue
		}
		statusTime, exists := s.taskStatusTimes[record.ID]
		if olderThan == 0 || (exists && now.Sub(statusTime) > olderThan) {
			processing = append(processing, record)
		}
	}
	return processing, nil
}

// Record returns a copy of the stored record for the given task ID.
func (s *MockTaskStore) Record(taskID uuid.UUID) (TaskRecord, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	record, ok := s.records[taskID]
	return record, ok
}

// SetStatusTime overrides the stored status timestamp, for stuck-task tests.
func (s *MockTaskStore) SetStatusTime(taskID uuid.UUID, at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.taskStatusTimes[taskID] = at
}

// SetRecord stores a record directly, bypassing SaveTask.
func (s *MockTaskStore) SetRecord(record TaskRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[record.ID] = record
	s.taskStatusTimes[record.ID] = time.Now()
}
