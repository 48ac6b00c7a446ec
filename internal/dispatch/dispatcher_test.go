package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcherConfig() DispatcherConfig {
	config := DefaultDispatcherConfig()
	config.Backoff = Backoff{
		BaseDelay: 5 * time.Millisecond,
		MaxDelay:  20 * time.Millisecond,
		jitter:    func() float64 { return 0 },
	}
	config.ExecTimeout = time.Second
	return config
}

func TestDispatcher_Submit(t *testing.T) {
	t.Parallel()

	t.Run("successful submission", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		d := NewDispatcher(store, nil, testDispatcherConfig(), newTestLogger())

		task := NewMockTask("test task")
		err := d.Submit(context.Background(), task)
		require.NoError(t, err)

		record, ok := store.Record(task.ID())
		require.True(t, ok)
		assert.Equal(t, TaskStatusPending, record.Status)
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		config := testDispatcherConfig()
		config.QueueSize = 1
		d := NewDispatcher(store, nil, config, newTestLogger())

		require.NoError(t, d.Submit(context.Background(), NewMockTask("task 1")))

		err := d.Submit(context.Background(), NewMockTask("task 2"))
		assert.ErrorIs(t, err, ErrQueueFull)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()

		store := NewMockTaskStore()
		store.SaveFn = func(ctx context.Context, task Task) error {
			return errors.New("mock store error")
		}
		d := NewDispatcher(store, nil, testDispatcherConfig(), newTestLogger())

		err := d.Submit(context.Background(), NewMockTask("error task"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save task")
	})
}

func TestDispatcher_ProcessesSubmittedTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	d := NewDispatcher(store, nil, testDispatcherConfig(), newTestLogger())

	executed := make(chan uuid.UUID, 3)
	tasks := make([]*MockTask, 0, 3)
	for i := 0; i < 3; i++ {
		task := NewMockTask("test task")
		task.ExecuteFn = func(ctx context.Context) error {
			executed <- task.ID()
			return nil
		}
		tasks = append(tasks, task)
		require.NoError(t, d.Submit(context.Background(), task))
	}

	require.NoError(t, d.Start())
	defer d.Stop()

	completed := make(map[uuid.UUID]bool)
	timeout := time.After(2 * time.Second)
	for len(completed) < 3 {
		select {
		case id := <-executed:
			completed[id] = true
		case <-timeout:
			t.Fatal("timed out waiting for tasks to execute")
		}
	}

	for _, task := range tasks {
		assert.True(t, completed[task.ID()])
		require.Eventually(t, func() bool {
			record, ok := store.Record(task.ID())
			return ok && record.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)
	}
}

func TestDispatcher_RetriesFailedTask(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	d := NewDispatcher(store, nil, testDispatcherConfig(), newTestLogger())

	var attempts atomic.Int32
	task := NewMockTask("flaky task")
	task.ExecuteFn = func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		return nil
	}

	require.NoError(t, d.Submit(context.Background(), task))
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Eventually(t, func() bool {
		record, ok := store.Record(task.ID())
		return ok && record.Status == TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(3), attempts.Load())

	record, _ := store.Record(task.ID())
	assert.Equal(t, 2, record.RetryCount)
}

func TestDispatcher_MarksTaskFailedAfterMaxRetries(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	config := testDispatcherConfig()
	config.MaxRetries = 3
	d := NewDispatcher(store, nil, config, newTestLogger())

	failedChan := make(chan error, 1)
	d.SetErrorHandler(func(task Task, err error) {
		failedChan <- err
	})

	var attempts atomic.Int32
	task := NewMockTask("doomed task")
	task.ExecuteFn = func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("permanent failure")
	}

	require.NoError(t, d.Submit(context.Background(), task))
	require.NoError(t, d.Start())
	defer d.Stop()

	select {
	case err := <-failedChan:
		assert.Contains(t, err.Error(), "permanent failure")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error handler")
	}

	require.Eventually(t, func() bool {
		record, ok := store.Record(task.ID())
		return ok && record.Status == TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	// One initial attempt plus three retries; never a fourth retry.
	assert.Equal(t, int32(4), attempts.Load())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(4), attempts.Load())

	record, _ := store.Record(task.ID())
	assert.Equal(t, 3, record.RetryCount)
	assert.Contains(t, record.LastError, "permanent failure")
}

func TestDispatcher_Recover(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	executed := make(chan uuid.UUID, 5)

	pendingID := uuid.New()
	processingID := uuid.New()
	store.SetRecord(TaskRecord{ID: pendingID, Kind: "mock", Status: TaskStatusPending, RetryCount: 1})
	store.SetRecord(TaskRecord{ID: processingID, Kind: "mock", Status: TaskStatusProcessing})

	factory := FactoryFunc(func(record TaskRecord) (Task, error) {
		task := NewMockTask("recovered")
		task.TaskID = record.ID
		task.ExecuteFn = func(ctx context.Context) error {
			executed <- record.ID
			return nil
		}
		return task, nil
	})

	d := NewDispatcher(store, factory, testDispatcherConfig(), newTestLogger())
	require.NoError(t, d.Start())
	defer d.Stop()

	expected := map[uuid.UUID]bool{pendingID: false, processingID: false}
	timeout := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case id := <-executed:
			expected[id] = true
		case <-timeout:
			t.Fatal("timed out waiting for recovered tasks")
		}
	}

	assert.True(t, expected[pendingID], "pending task should have been requeued")
	assert.True(t, expected[processingID], "processing task should have been reset and requeued")
}

func TestDispatcher_StuckTaskMonitor(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	executed := make(chan uuid.UUID, 1)

	stuckID := uuid.New()
	store.SetRecord(TaskRecord{ID: stuckID, Kind: "mock", Status: TaskStatusProcessing})
	store.SetStatusTime(stuckID, time.Now().Add(-30*time.Minute))

	factory := FactoryFunc(func(record TaskRecord) (Task, error) {
		task := NewMockTask("stuck")
		task.TaskID = record.ID
		task.ExecuteFn = func(ctx context.Context) error {
			executed <- record.ID
			return nil
		}
		return task, nil
	})

	config := testDispatcherConfig()
	config.StuckTaskAge = 15 * time.Minute
	config.StuckTaskCheckInterval = 50 * time.Millisecond

	d := NewDispatcher(store, factory, config, newTestLogger())
	// Bypass Start's recovery so only the monitor can find the task.
	d.wg.Add(1)
	go d.worker(0)
	d.wg.Add(1)
	go d.stuckTaskMonitor()
	defer d.Stop()

	select {
	case id := <-executed:
		assert.Equal(t, stuckID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stuck task to be requeued")
	}
}
