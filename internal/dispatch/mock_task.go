package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// MockTask implements the Task interface for testing.
type MockTask struct {
	TaskID      uuid.UUID
	TaskKind    string
	TaskPayload []byte
	ExecuteFn   func(ctx context.Context) error
}

// NewMockTask creates a MockTask with the given payload and a no-op
// execute function.
func NewMockTask(payload string) *MockTask {
	return &MockTask{
		TaskID:      uuid.New(),
		TaskKind:    "mock",
		TaskPayload: []byte(payload),
		ExecuteFn:   func(ctx context.Context) error { return nil },
	}
}

// ID implements Task.
func (t *MockTask) ID() uuid.UUID { return t.TaskID }

// Kind implements Task.
func (t *MockTask) Kind() string { return t.TaskKind }

// Payload implements Task.
func (t *MockTask) Payload() []byte { return t.TaskPayload }

// Execute implements Task.
func (t *MockTask) Execute(ctx context.Context) error {
	if t.ExecuteFn != nil {
		return t.ExecuteFn(ctx)
	}
	return nil
}

// FactoryFunc adapts a function to the TaskFactory interface.
type FactoryFunc func(record TaskRecord) (Task, error)

// Rehydrate implements TaskFactory.
func (f FactoryFunc) Rehydrate(record TaskRecord) (Task, error) {
	return f(record)
}
