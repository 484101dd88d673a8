package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// Verify interface compliance.
var _ driving.StatusService = (*StatusService)(nil)

// StatusService reads the task journal for display.
type StatusService struct {
	store driven.SchedulerStore
}

// NewStatusService creates a status service. A nil store reports no tasks.
func NewStatusService(store driven.SchedulerStore) *StatusService {
	return &StatusService{store: store}
}

// Tasks returns every journalled task ordered by ID, with the built-in
// tasks always present.
func (s *StatusService) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	var tasks []domain.ScheduledTask
	if s.store != nil {
		var err error
		tasks, err = s.store.ListTasks(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: %w", err)
		}
	}

	for _, id := range []string{domain.TaskIDAccountExpiry, domain.TaskIDKeyRotation} {
		if !hasTask(tasks, id) {
			tasks = append(tasks, domain.ScheduledTask{ID: id, Name: domain.TaskName(id)})
		}
	}
	slices.SortFunc(tasks, func(a, b domain.ScheduledTask) int {
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// History returns the most recent results for taskID.
func (s *StatusService) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.store == nil {
		return nil, nil
	}

	results, err := s.store.GetTaskHistory(ctx, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", taskID, err)
	}
	return results, nil
}

func hasTask(tasks []domain.ScheduledTask, id string) bool {
	for i := range tasks {
		if tasks[i].ID == id {
			return true
		}
	}
	return false
}
