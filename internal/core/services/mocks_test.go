package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// epoch is the fake clock's starting time in all service tests.
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// waitTimeout bounds every wait on asynchronous manager output.
const waitTimeout = 2 * time.Second

// MockAccountAuthority is a mock implementation of driven.AccountAuthority.
type MockAccountAuthority struct {
	mock.Mock
}

var _ driven.AccountAuthority = (*MockAccountAuthority)(nil)

func (m *MockAccountAuthority) GetAccountData(ctx context.Context, accountToken string) (domain.AccountData, error) {
	args := m.Called(ctx, accountToken)
	return args.Get(0).(domain.AccountData), args.Error(1)
}

func (m *MockAccountAuthority) ReplaceKey(
	ctx context.Context,
	accountToken string,
	oldKey, newKey domain.Key,
) (domain.AssociatedAddresses, error) {
	args := m.Called(ctx, accountToken, oldKey, newKey)
	return args.Get(0).(domain.AssociatedAddresses), args.Error(1)
}

// sequenceKeygen hands out predictable keys: the n-th key has n in its
// first byte.
type sequenceKeygen struct {
	mu  sync.Mutex
	n   byte
	err error
}

var _ driven.KeyGenerator = (*sequenceKeygen)(nil)

func (g *sequenceKeygen) Generate(creationDate time.Time) (domain.PrivateKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return domain.PrivateKey{}, g.err
	}
	g.n++
	return domain.PrivateKey{
		Private:      domain.Key{g.n, 0xAA},
		Public:       domain.Key{g.n, 0xBB},
		CreationDate: creationDate,
	}, nil
}

// recorder collects callback values on a buffered channel.
type recorder[T any] struct {
	ch chan T
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{ch: make(chan T, 64)}
}

func (r *recorder[T]) record(v T) {
	r.ch <- v
}

// next waits for the next recorded value.
func (r *recorder[T]) next() (T, bool) {
	select {
	case v := <-r.ch:
		return v, true
	case <-time.After(waitTimeout):
		var zero T
		return zero, false
	}
}

// quiet reports whether nothing is recorded within d.
func (r *recorder[T]) quiet(d time.Duration) bool {
	select {
	case <-r.ch:
		return false
	case <-time.After(d):
		return true
	}
}

// mockSchedulerStore implements driven.SchedulerStore with injectable errors.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
	pruned   int
}

var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recorded := m.results[taskID]
	newestFirst := make([]domain.TaskResult, 0, len(recorded))
	for i := len(recorded) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, recorded[i])
	}
	if limit > 0 && len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}
	return newestFirst, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = keep
	return m.pruneErr
}

func (m *mockSchedulerStore) task(id string) (domain.ScheduledTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.ScheduledTask{}, false
	}
	return *task, true
}

func (m *mockSchedulerStore) history(id string) []domain.TaskResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TaskResult(nil), m.results[id]...)
}
