package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

func TestRunCmd_NotConfigured(t *testing.T) {
	setupServices(t, &Services{})

	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "scheduler not configured")
}

func TestRunCmd_PrintsNotifications(t *testing.T) {
	scheduler := &fakeScheduler{notify: func(o driving.Observer) {
		o.AccountDataChanged(domain.AccountData{AccountNumber: testAccount})
		o.KeyRotated(domain.KeyRotationEvent{IsNew: true, PublicKey: domain.Key{7}})
		o.AccountAlert(domain.AccountAlert{AccountNumber: testAccount, Reason: domain.AlertAccountExpired})
	}, err: context.Canceled}
	setupServices(t, &Services{Run: &RunConfig{Scheduler: scheduler}})

	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "keyward running")
	assert.Contains(t, out, "account ************1234: checking expiry")
	assert.Contains(t, out, "rotated key, new public key "+domain.Key{7}.String())
	assert.Contains(t, out, "account ************1234 is out of time")
	assert.Contains(t, out, "keyward stopped.")
}

func TestRunCmd_SchedulerError(t *testing.T) {
	setupServices(t, &Services{Run: &RunConfig{Scheduler: &fakeScheduler{err: errors.New("boom")}}})

	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "scheduler stopped: boom")
}

func TestRunCmd_StartsWatcher(t *testing.T) {
	watched := make(chan struct{})
	scheduler := &fakeScheduler{notify: func(driving.Observer) {
		select {
		case <-watched:
		case <-time.After(time.Second):
		}
	}}
	setupServices(t, &Services{Run: &RunConfig{
		Scheduler: scheduler,
		Watch: func(ctx context.Context) error {
			close(watched)
			<-ctx.Done()
			return ctx.Err()
		},
	}})

	_, err := execute(t, "run")
	require.NoError(t, err)

	select {
	case <-watched:
	default:
		t.Fatal("watcher was not started")
	}
}

func TestPrintingObserver(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	buf := new(bytes.Buffer)
	o := newPrintingObserver(buf)
	o.now = func() time.Time { return now }

	o.AccountDataChanged(domain.AccountData{})
	o.AccountDataChanged(domain.AccountData{AccountNumber: testAccount, Expiry: now.Add(60 * 24 * time.Hour)})
	o.AccountAlert(domain.AccountAlert{AccountNumber: testAccount, Reason: domain.AlertInvalidAccount})
	o.KeyRotated(domain.KeyRotationEvent{IsNew: true, PublicKey: domain.Key{1}, CreationDate: now})

	out := buf.String()
	assert.Contains(t, out, "12:00:00 logged out\n")
	assert.Contains(t, out, "60 days left")
	assert.Contains(t, out, "was rejected by the authority")
	assert.Contains(t, out, "rotated key, new public key "+domain.Key{1}.String())
}
