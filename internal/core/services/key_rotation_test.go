package services

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/keyward/internal/adapters/driven/clock"
	"github.com/custodia-labs/keyward/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/keyward/internal/core/domain"
)

const testToken = "1234123412341234"

var (
	oldPublic = domain.Key{0xEE, 0xBB}
	newKey    = domain.PrivateKey{
		Private:      domain.Key{1, 0xAA},
		Public:       domain.Key{1, 0xBB},
		CreationDate: epoch,
	}
	testAddresses = domain.AssociatedAddresses{
		IPv4: netip.MustParsePrefix("10.64.0.7/32"),
		IPv6: netip.MustParsePrefix("fc00:bbbb:bbbb:bb01::7/128"),
	}
)

type rotationHarness struct {
	clock     *clock.Fake
	store     *memory.TunnelConfigStore
	authority *MockAccountAuthority
	keygen    *sequenceKeygen
	journal   *mockSchedulerStore
	manager   *KeyRotationManager
	events    *recorder[domain.KeyRotationEvent]
}

func newRotationHarness(t *testing.T, keyAge time.Duration) *rotationHarness {
	t.Helper()

	h := &rotationHarness{
		clock:     clock.NewFake(epoch),
		store:     memory.NewTunnelConfigStore(),
		authority: &MockAccountAuthority{},
		keygen:    &sequenceKeygen{},
		journal:   newMockSchedulerStore(),
		events:    newRecorder[domain.KeyRotationEvent](),
	}

	if keyAge >= 0 {
		require.NoError(t, h.store.Save(context.Background(), domain.KeychainEntry{
			Reference:    "default",
			AccountToken: testToken,
			TunnelConfiguration: domain.TunnelConfiguration{
				Interface: domain.InterfaceConfiguration{
					PrivateKey: domain.PrivateKey{
						Private:      domain.Key{0xEE, 0xAA},
						Public:       oldPublic,
						CreationDate: epoch.Add(-keyAge),
					},
				},
			},
		}))
	}

	h.manager = NewKeyRotationManager(
		"default",
		domain.DefaultSettings().Rotation,
		h.store,
		h.authority,
		h.keygen,
		h.clock,
		NewTaskJournal(h.journal, 10),
	)
	h.manager.SetKeyRotationEventHandler(h.events.record)
	t.Cleanup(h.manager.Close)
	return h
}

func (h *rotationHarness) expectEvent(t *testing.T) domain.KeyRotationEvent {
	t.Helper()
	event, ok := h.events.next()
	require.True(t, ok, "no key rotation event")
	return event
}

// waitForNext waits until the next cycle is due at deadline.
func (h *rotationHarness) waitForNext(t *testing.T, deadline time.Time) {
	t.Helper()
	require.Eventually(t, func() bool {
		handle, ok := h.manager.tasks.Pending(taskRotation)
		return ok && handle.Deadline().Equal(deadline)
	}, waitTimeout, time.Millisecond)
}

func (h *rotationHarness) storedKey(t *testing.T) domain.PrivateKey {
	t.Helper()
	entry, err := h.store.Load(context.Background(), "default")
	require.NoError(t, err)
	return entry.TunnelConfiguration.Interface.PrivateKey
}

func TestKeyRotationManager_RotatesDueKey(t *testing.T) {
	h := newRotationHarness(t, 48*time.Hour)
	h.authority.On("ReplaceKey", mock.Anything, testToken, oldPublic, newKey.Public).
		Return(testAddresses, nil).Once()

	h.manager.Start()

	event := h.expectEvent(t)
	assert.Equal(t, domain.KeyRotationEvent{IsNew: true, CreationDate: epoch, PublicKey: newKey.Public}, event)

	h.manager.Sync()
	h.waitForNext(t, epoch.Add(24*time.Hour))
	assert.True(t, h.events.quiet(20*time.Millisecond), "expected exactly one event")

	assert.Equal(t, newKey, h.storedKey(t))
	entry, err := h.store.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, testAddresses.Prefixes(), entry.TunnelConfiguration.Interface.Addresses)
	assert.Equal(t, testToken, entry.AccountToken)

	last, ok := h.manager.LastEvent()
	require.True(t, ok)
	assert.Equal(t, event, last)

	task, ok := h.journal.task(domain.TaskIDKeyRotation)
	require.True(t, ok)
	assert.Equal(t, epoch.Add(24*time.Hour), task.NextRun)
	history := h.journal.history(domain.TaskIDKeyRotation)
	require.Len(t, history, 1)
	assert.Equal(t, "rotated", history[0].Detail)
	h.authority.AssertExpectations(t)
}

func TestKeyRotationManager_KeyNotDue(t *testing.T) {
	h := newRotationHarness(t, time.Hour)

	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))

	event, ok := h.manager.LastEvent()
	require.True(t, ok)
	assert.False(t, event.IsNew)
	assert.Equal(t, epoch.Add(-time.Hour), event.CreationDate)
	assert.Equal(t, oldPublic, event.PublicKey)

	assert.True(t, h.events.quiet(20*time.Millisecond), "a key that is not due is not reported to the handler")
	history := h.journal.history(domain.TaskIDKeyRotation)
	require.Len(t, history, 1)
	assert.Equal(t, "not due", history[0].Detail)
	h.authority.AssertNotCalled(t, "ReplaceKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKeyRotationManager_RotatesWhenDeadlineArrives(t *testing.T) {
	h := newRotationHarness(t, time.Hour)
	h.authority.On("ReplaceKey", mock.Anything, testToken, oldPublic, mock.Anything).
		Return(testAddresses, nil).Once()

	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))
	assert.True(t, h.events.quiet(20*time.Millisecond))

	h.clock.Advance(23 * time.Hour)
	event := h.expectEvent(t)
	assert.True(t, event.IsNew)
	assert.Equal(t, epoch.Add(23*time.Hour), event.CreationDate)

	h.manager.Sync()
	h.waitForNext(t, epoch.Add(47*time.Hour))
}

func TestKeyRotationManager_ReplaceKeyFailureRetriesFlat(t *testing.T) {
	h := newRotationHarness(t, 48*time.Hour)
	h.authority.On("ReplaceKey", mock.Anything, testToken, oldPublic, mock.Anything).
		Return(domain.AssociatedAddresses{}, fmt.Errorf("%w: gateway timeout", domain.ErrTransient))

	h.manager.Start()
	h.waitForNext(t, epoch.Add(300*time.Second))

	// Nothing was written and nothing was emitted.
	assert.Equal(t, oldPublic, h.storedKey(t).Public)
	assert.True(t, h.events.quiet(20*time.Millisecond))
	_, ok := h.manager.LastEvent()
	assert.False(t, ok)

	// The delay does not grow.
	h.clock.Advance(300 * time.Second)
	h.manager.Sync()
	h.waitForNext(t, epoch.Add(600*time.Second))

	h.authority.AssertNumberOfCalls(t, "ReplaceKey", 2)

	task, ok := h.journal.task(domain.TaskIDKeyRotation)
	require.True(t, ok)
	assert.Contains(t, task.LastError, "rpc error")
	assert.Equal(t, uint(2), task.Attempt)
}

func TestKeyRotationManager_MissingConfigurationIsReadError(t *testing.T) {
	h := newRotationHarness(t, -1)

	h.manager.Start()
	h.waitForNext(t, epoch.Add(300*time.Second))

	task, ok := h.journal.task(domain.TaskIDKeyRotation)
	require.True(t, ok)
	assert.Contains(t, task.LastError, "read tunnel configuration error")
	assert.True(t, h.events.quiet(20*time.Millisecond))
}

func TestKeyRotationManager_KeyGenerationFailure(t *testing.T) {
	h := newRotationHarness(t, 48*time.Hour)
	h.keygen.err = errors.New("no entropy")

	h.manager.Start()
	h.waitForNext(t, epoch.Add(300*time.Second))

	task, ok := h.journal.task(domain.TaskIDKeyRotation)
	require.True(t, ok)
	assert.Contains(t, task.LastError, "generate key error")
	h.authority.AssertNotCalled(t, "ReplaceKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestKeyRotationManager_StopDiscardsLateResult(t *testing.T) {
	h := newRotationHarness(t, 48*time.Hour)
	called := make(chan struct{})
	release := make(chan struct{})
	h.authority.On("ReplaceKey", mock.Anything, testToken, oldPublic, newKey.Public).
		Run(func(mock.Arguments) {
			close(called)
			<-release
		}).
		Return(testAddresses, nil).Once()

	h.manager.Start()
	select {
	case <-called:
	case <-time.After(waitTimeout):
		t.Fatal("rotation did not reach the authority")
	}

	h.manager.Stop()
	h.manager.Sync()
	assert.False(t, h.manager.IsRunning())
	close(release)

	// The authority holds the new key, so it is still stored locally.
	require.Eventually(t, func() bool {
		entry, err := h.store.Load(context.Background(), "default")
		return err == nil && entry.TunnelConfiguration.Interface.PrivateKey.Public == newKey.Public
	}, waitTimeout, time.Millisecond)

	assert.True(t, h.events.quiet(50*time.Millisecond), "late result must not be emitted")
	h.manager.Sync()
	assert.Equal(t, 0, h.manager.tasks.Len())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestKeyRotationManager_StartStopIdempotent(t *testing.T) {
	h := newRotationHarness(t, time.Hour)

	h.manager.Stop()
	h.manager.Start()
	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))
	h.manager.Sync()
	assert.True(t, h.manager.IsRunning())
	assert.Equal(t, 1, h.manager.tasks.Len())
	assert.Len(t, h.journal.history(domain.TaskIDKeyRotation), 1)

	h.manager.Stop()
	h.manager.Stop()
	h.manager.Sync()
	assert.False(t, h.manager.IsRunning())
	assert.Equal(t, 0, h.manager.tasks.Len())

	// Restarting evaluates again at once.
	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))
	assert.Len(t, h.journal.history(domain.TaskIDKeyRotation), 2)
}

func TestKeyRotationManager_ReplaysLastRotation(t *testing.T) {
	h := newRotationHarness(t, 48*time.Hour)
	h.authority.On("ReplaceKey", mock.Anything, testToken, oldPublic, newKey.Public).
		Return(testAddresses, nil).Once()

	h.manager.Start()
	first := h.expectEvent(t)
	h.manager.Sync()

	late := newRecorder[domain.KeyRotationEvent]()
	h.manager.SetKeyRotationEventHandler(late.record)

	replayed, ok := late.next()
	require.True(t, ok)
	assert.Equal(t, first, replayed)
}

func TestKeyRotationManager_NotDueIsNeverReplayed(t *testing.T) {
	h := newRotationHarness(t, time.Hour)

	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))
	_, ok := h.manager.LastEvent()
	require.True(t, ok)

	late := newRecorder[domain.KeyRotationEvent]()
	h.manager.SetKeyRotationEventHandler(late.record)
	h.manager.Sync()

	assert.True(t, late.quiet(20*time.Millisecond))
	assert.True(t, h.events.quiet(20*time.Millisecond))
}

func TestKeyRotationManager_NoReplayBeforeFirstEvent(t *testing.T) {
	h := newRotationHarness(t, time.Hour)

	late := newRecorder[domain.KeyRotationEvent]()
	h.manager.SetKeyRotationEventHandler(late.record)
	h.manager.Sync()

	assert.True(t, late.quiet(20*time.Millisecond))
}

func TestKeyRotationManager_CloseStopsEverything(t *testing.T) {
	h := newRotationHarness(t, time.Hour)
	h.manager.Start()
	h.waitForNext(t, epoch.Add(23*time.Hour))
	h.manager.Sync()

	h.manager.Close()
	h.manager.Close()

	assert.False(t, h.manager.IsRunning())
	assert.Equal(t, 0, h.clock.Pending())

	h.manager.Start()
	h.clock.Advance(48 * time.Hour)
	assert.True(t, h.events.quiet(20*time.Millisecond))
}
