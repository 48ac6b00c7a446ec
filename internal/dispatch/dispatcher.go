package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// WorkerCount determines how many concurrent workers process tasks.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue.
	QueueSize int

	// MaxRetries is how many times a failed task is retried before it is
	// marked terminally failed. A task is therefore attempted at most
	// MaxRetries+1 times.
	MaxRetries int

	// Backoff computes the delay before each retry.
	Backoff Backoff

	// ExecTimeout bounds one execution attempt so a stuck external
	// dependency does not indefinitely occupy a worker.
	ExecTimeout time.Duration

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks.
	// If zero, defaults to 5 minutes.
	StuckTaskCheckInterval time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:            2,
		QueueSize:              100,
		MaxRetries:             3,
		Backoff:                DefaultBackoff(),
		ExecTimeout:            30 * time.Second,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Dispatcher owns every task from submission to terminal state. Submission
// persists the task and hands it to the bounded in-memory queue; a pool of
// workers executes side effects; failed attempts are retried with backoff
// up to the configured maximum, after which the task is marked failed and
// surfaced to the error handler rather than silently dropped.
//
// A task is never executed by two workers at once: retries re-enter the
// queue only after the previous attempt has fully completed.
type Dispatcher struct {
	store      TaskStore
	factory    TaskFactory
	queue      *TaskQueue
	config     DispatcherConfig
	logger     *slog.Logger
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	errHandler func(task Task, err error)

	mu      sync.Mutex
	retries map[string]int
}

// NewDispatcher creates a new Dispatcher. The factory is only required when
// recovery is used; pass nil to disable rehydration of persisted tasks.
func NewDispatcher(store TaskStore, factory TaskFactory, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		store:      store,
		factory:    factory,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger.With(slog.String("component", "dispatcher")),
		ctx:        ctx,
		cancelFunc: cancel,
		retries:    make(map[string]int),
	}
	d.errHandler = func(task Task, err error) {
		d.logger.Error("task exhausted retries",
			"task_id", task.ID(),
			"task_kind", task.Kind(),
			"retry_count", d.retryCount(task),
			"payload_bytes", len(task.Payload()),
			"error", err)
	}
	return d
}

// SetErrorHandler allows setting a custom handler invoked when a task
// exhausts its retries.
func (d *Dispatcher) SetErrorHandler(handler func(task Task, err error)) {
	d.errHandler = handler
}

// Submit persists the task and adds it to the queue. The caller never
// blocks on the task's side effect; a full queue is surfaced as an error.
func (d *Dispatcher) Submit(ctx context.Context, task Task) error {
	if err := d.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := d.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks and launches the worker pool and the
// stuck-task monitor.
func (d *Dispatcher) Start() error {
	if err := d.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.wg.Add(1)
	go d.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the dispatcher. In-flight attempts run to
// completion; queued tasks remain pending in the store and are recovered on
// the next start.
func (d *Dispatcher) Stop() {
	d.cancelFunc()
	d.wg.Wait()
	d.queue.Close()
}

// Recover requeues tasks left pending by a previous run and resets tasks
// that were mid-processing when the process died.
func (d *Dispatcher) Recover() error {
	if d.factory == nil {
		return nil
	}
	ctx := context.Background()

	pending, err := d.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Processing rows from a previous run were interrupted by a crash.
	processing, err := d.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	d.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, record := range pending {
		d.requeueRecord(ctx, record, false)
	}
	for _, record := range processing {
		d.requeueRecord(ctx, record, true)
	}

	return nil
}

// requeueRecord rehydrates a durable record into an executable task and
// puts it back on the queue, optionally resetting its status to pending
// first.
func (d *Dispatcher) requeueRecord(ctx context.Context, record TaskRecord, resetStatus bool) {
	task, err := d.factory.Rehydrate(record)
	if err != nil {
		d.logger.Error("failed to rehydrate task",
			"task_id", record.ID,
			"task_kind", record.Kind,
			"error", err)
		return
	}

	if resetStatus {
		if err := d.store.UpdateTaskStatus(ctx, record.ID, TaskStatusPending, record.RetryCount, "reset after recovery"); err != nil {
			d.logger.Error("failed to reset task status",
				"task_id", record.ID,
				"error", err)
			return
		}
	}

	d.mu.Lock()
	d.retries[record.ID.String()] = record.RetryCount
	d.mu.Unlock()

	if err := d.queue.Enqueue(task); err != nil {
		d.logger.Error("failed to requeue task, queue is full",
			"task_id", record.ID,
			"task_kind", record.Kind)
	}
}

// worker processes tasks from the queue.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-d.queue.Chan():
			if !ok {
				return
			}
			d.processTask(task, id)
		}
	}
}

// processTask handles one execution attempt of a task, including retry
// scheduling on failure. A claimed task runs to completion: shutdown does
// not cancel the attempt, and the attempt itself is bounded by ExecTimeout.
func (d *Dispatcher) processTask(task Task, workerID int) {
	ctx := context.Background()
	retryCount := d.retryCount(task)
	log := d.logger.With(
		"task_id", task.ID(),
		"task_kind", task.Kind(),
		"worker_id", workerID,
		"retry_count", retryCount,
	)

	if err := d.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, retryCount, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")

	execCtx := ctx
	if d.config.ExecTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, d.config.ExecTimeout)
		defer cancel()
	}

	err := task.Execute(execCtx)
	if err == nil {
		log.Info("task completed successfully")
		if updateErr := d.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, retryCount, ""); updateErr != nil {
			log.Error("failed to update task status to completed", "error", updateErr)
		}
		d.clearRetries(task)
		return
	}

	retryCount++
	d.setRetries(task, retryCount)

	if retryCount <= d.config.MaxRetries {
		delay := d.config.Backoff.Delay(retryCount - 1)
		log.Warn("task attempt failed, scheduling retry",
			"error", err,
			"next_retry", retryCount,
			"delay", delay)

		if updateErr := d.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusPending, retryCount, err.Error()); updateErr != nil {
			log.Error("failed to update task status for retry", "error", updateErr)
		}

		d.scheduleRetry(task, delay)
		return
	}

	// Retries exhausted: terminal failure, surfaced rather than dropped.
	log.Error("task failed permanently",
		"error", err,
		"attempts", retryCount)
	if updateErr := d.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, retryCount, err.Error()); updateErr != nil {
		log.Error("failed to update task status to failed", "error", updateErr)
	}
	if d.errHandler != nil {
		d.errHandler(task, err)
	}
	d.clearRetries(task)
}

// scheduleRetry re-enqueues the task after the backoff delay. The timer
// goroutine is tracked so Stop waits for pending retries to be handed back
// to the queue (or abandoned on shutdown; the pending row recovers them).
func (d *Dispatcher) scheduleRetry(task Task, delay time.Duration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-d.ctx.Done():
			return
		case <-timer.C:
			if err := d.queue.Enqueue(task); err != nil {
				d.logger.Error("failed to requeue task for retry",
					"task_id", task.ID(),
					"task_kind", task.Kind(),
					"error", err)
			}
		}
	}()
}

// stuckTaskMonitor periodically resets tasks that have been in processing
// state for too long, e.g. after a worker crash mid-execution.
func (d *Dispatcher) stuckTaskMonitor() {
	defer d.wg.Done()

	if d.factory == nil {
		return
	}

	ticker := time.NewTicker(d.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := d.store.GetProcessingTasks(ctx, d.config.StuckTaskAge)
			if err != nil {
				d.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}

			if len(stuck) > 0 {
				d.logger.Info("found stuck tasks", "count", len(stuck))
				for _, record := range stuck {
					d.requeueRecord(ctx, record, true)
				}
			}
		}
	}
}

func (d *Dispatcher) retryCount(task Task) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.retries[task.ID().String()]
}

func (d *Dispatcher) setRetries(task Task, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retries[task.ID().String()] = count
}

func (d *Dispatcher) clearRetries(task Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.retries, task.ID().String())
}
