package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task status values. StatusDone is the terminal state; a status change to
// it fans out a completion notification to the rest of the project.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskPriority is the urgency level of a task.
type TaskPriority string

// Task priority values.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Task is the pipeline's read model of a task. CRUD on tasks is external;
// the pipeline reads tasks for fan-out context, reminder windows and digest
// aggregation.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	ProjectID   *uuid.UUID   `json:"project_id,omitempty"`
	AssigneeID  *uuid.UUID   `json:"assignee_id,omitempty"`
	CreatedBy   *uuid.UUID   `json:"created_by,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsDone reports whether the task is in the terminal done state.
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// IsOverdue reports whether the task has a due date in the past and is not
// done.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsDone() {
		return false
	}
	return t.DueDate.Before(now)
}

// Snapshot serializes the task's tracked fields for change detection.
// Relation fields hold the referenced identifier, empty when unset, so a
// relation change is detected by id comparison rather than object identity.
func (t *Task) Snapshot() map[string]string {
	snap := map[string]string{
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"project":     uuidField(t.ProjectID),
		"assignee":    uuidField(t.AssigneeID),
		"due_date":    timeField(t.DueDate),
	}
	return snap
}

func uuidField(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
