package domain

import "time"

// ScheduledTask is the journalled state of a manager's background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task is scheduled to run next.
	// Zero when nothing is scheduled.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Attempt is the current retry attempt. Zero after a success.
	Attempt uint
}

// TaskResult represents the outcome of one cycle of a task.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when the cycle completed.
	EndedAt time.Time

	// Success indicates whether the cycle completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// Detail is a short description of the outcome (e.g., "rotated", "not due").
	Detail string
}

// Task IDs for the built-in managers.
const (
	TaskIDKeyRotation   = "key-rotation"
	TaskIDAccountExpiry = "account-expiry"
)

// TaskName returns the human-readable name of a built-in task.
func TaskName(id string) string {
	switch id {
	case TaskIDKeyRotation:
		return "Key Rotation"
	case TaskIDAccountExpiry:
		return "Account Expiry"
	default:
		return id
	}
}

// DefaultJournalKeep is how many results per task the journal retains.
const DefaultJournalKeep = 100
