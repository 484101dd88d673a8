package services

import (
	"context"
	"log"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// journalTimeout bounds a single journal write.
const journalTimeout = 5 * time.Second

// TaskJournal records the state and history of background cycles.
// A nil *TaskJournal is valid and records nothing.
type TaskJournal struct {
	store driven.SchedulerStore
	keep  int
}

// NewTaskJournal creates a journal keeping the most recent keep results per
// task. Returns nil if store is nil.
func NewTaskJournal(store driven.SchedulerStore, keep int) *TaskJournal {
	if store == nil {
		return nil
	}
	if keep <= 0 {
		keep = domain.DefaultJournalKeep
	}
	return &TaskJournal{store: store, keep: keep}
}

// cycleOutcome describes one completed cycle.
type cycleOutcome struct {
	startedAt time.Time
	endedAt   time.Time
	err       error
	detail    string
	nextRun   time.Time
	attempt   uint
}

// record updates the task state and appends the result to its history.
// Failures are logged; the journal never affects the cycle itself.
func (j *TaskJournal) record(taskID string, outcome cycleOutcome) {
	if j == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	task, err := j.store.GetTask(ctx, taskID)
	if err != nil {
		log.Printf("scheduler: failed to load task %s: %v", taskID, err)
		return
	}
	if task == nil {
		task = &domain.ScheduledTask{
			ID:   taskID,
			Name: domain.TaskName(taskID),
		}
	}

	result := &domain.TaskResult{
		TaskID:    taskID,
		StartedAt: outcome.startedAt,
		EndedAt:   outcome.endedAt,
		Success:   outcome.err == nil,
		Detail:    outcome.detail,
	}

	task.LastRun = outcome.startedAt
	task.NextRun = outcome.nextRun
	task.Attempt = outcome.attempt
	if outcome.err != nil {
		result.Error = outcome.err.Error()
		task.LastError = outcome.err.Error()
	} else {
		task.LastError = ""
		task.LastSuccess = outcome.endedAt
	}

	if saveErr := j.store.SaveTask(ctx, task); saveErr != nil {
		log.Printf("scheduler: failed to save task %s: %v", taskID, saveErr)
	}

	if recordErr := j.store.RecordResult(ctx, result); recordErr != nil {
		log.Printf("scheduler: failed to record result for %s: %v", taskID, recordErr)
	}

	if pruneErr := j.store.PruneHistory(ctx, j.keep); pruneErr != nil {
		log.Printf("scheduler: failed to prune history: %v", pruneErr)
	}
}
