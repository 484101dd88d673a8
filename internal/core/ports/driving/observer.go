package driving

import (
	"context"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// Observer receives everything the background managers report.
// Methods are called from the managers' queues and must not block for long.
type Observer interface {
	AccountDataChanged(data domain.AccountData)
	AccountAlert(alert domain.AccountAlert)
	KeyRotated(event domain.KeyRotationEvent)
}

// Scheduler runs the background managers for the lifetime of a context.
type Scheduler interface {
	// Start attaches observer and blocks until ctx is done or Stop is called.
	Start(ctx context.Context, observer Observer) error

	// Stop makes a running Start return.
	Stop() error
}

// StatusService reads the journal of background cycles.
type StatusService interface {
	// Tasks returns the journalled state of every task.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns the most recent results of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
