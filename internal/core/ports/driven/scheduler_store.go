package driven

import (
	"context"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// SchedulerStore is the journal of the background managers. Each manager
// writes one ScheduledTask (keyed by domain.TaskIDKeyRotation or
// domain.TaskIDAccountExpiry) and one TaskResult per completed cycle, so a
// later process can tell how stale the last successful update is.
type SchedulerStore interface {
	// GetTask returns the journalled state of taskID, or nil and no error if
	// the task has never run.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every journalled task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces the state of task.ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteTask removes a task together with its history.
	DeleteTask(ctx context.Context, taskID string) error

	// RecordResult appends a cycle outcome.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit results for taskID, newest first.
	// A limit of zero or less returns all of them.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps the newest keep results of every task.
	PruneHistory(ctx context.Context, keep int) error
}
