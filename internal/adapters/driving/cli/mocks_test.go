package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// setupServices installs s for the duration of the test.
func setupServices(t *testing.T, s *Services) {
	t.Helper()
	SetServices(s)
	t.Cleanup(func() { SetServices(nil) })
}

// mockAccountService implements driving.AccountService for testing.
type mockAccountService struct {
	mu        sync.Mutex
	entry     *domain.KeychainEntry
	loginErr  error
	loggedIn  string
	loggedOut bool
}

var _ driving.AccountService = (*mockAccountService)(nil)

func (m *mockAccountService) Login(_ context.Context, accountNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loginErr != nil {
		return m.loginErr
	}
	m.loggedIn = accountNumber
	return nil
}

func (m *mockAccountService) Logout(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedOut = true
	return nil
}

func (m *mockAccountService) Current(_ context.Context) (*domain.KeychainEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entry == nil {
		return nil, domain.ErrNotLoggedIn
	}
	entry := *m.entry
	return &entry, nil
}

// mockStatusService implements driving.StatusService for testing.
type mockStatusService struct {
	tasks   []domain.ScheduledTask
	history map[string][]domain.TaskResult
	err     error
}

var _ driving.StatusService = (*mockStatusService)(nil)

func (m *mockStatusService) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, m.err
}

func (m *mockStatusService) History(_ context.Context, taskID string, _ int) ([]domain.TaskResult, error) {
	return m.history[taskID], nil
}

// scriptedTracker implements driving.AccountExpiryTracker by replaying
// scripted notifications on attach.
type scriptedTracker struct {
	mu       sync.Mutex
	changes  []domain.AccountData
	alerts   []domain.AccountAlert
	onAlert  func(domain.AccountAlert)
	detached bool
}

var _ driving.AccountExpiryTracker = (*scriptedTracker)(nil)

func (s *scriptedTracker) FetchAccountExpiry() {}

func (s *scriptedTracker) SetOnAccountDataChange(handler func(domain.AccountData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handler == nil {
		s.detached = true
		return
	}
	for _, data := range s.changes {
		handler(data)
	}
	for _, alert := range s.alerts {
		if s.onAlert != nil {
			s.onAlert(alert)
		}
	}
}

func (s *scriptedTracker) SetOnAccountAlert(handler func(domain.AccountAlert)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAlert = handler
}

func (s *scriptedTracker) Snapshot() domain.AccountData {
	return domain.AccountData{}
}

func (s *scriptedTracker) Close() {}

func (s *scriptedTracker) wasDetached(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.True(t, s.detached, "tracker handler was not cleared")
}

// fakeScheduler implements driving.Scheduler by feeding observer a fixed
// set of notifications and returning.
type fakeScheduler struct {
	notify func(observer driving.Observer)
	err    error
}

var _ driving.Scheduler = (*fakeScheduler)(nil)

func (f *fakeScheduler) Start(_ context.Context, observer driving.Observer) error {
	if f.notify != nil {
		f.notify(observer)
	}
	return f.err
}

func (f *fakeScheduler) Stop() error {
	return nil
}
