package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// RunConfig holds what the run command needs beyond the core services.
type RunConfig struct {
	Scheduler driving.Scheduler

	// Watch follows external account changes until ctx ends. Optional.
	Watch func(ctx context.Context) error
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background scheduler",
	Long: `Run key rotation and account expiry checks until interrupted.

Key rotation runs only while an account is logged in. Logging in or out with
'keyward account' from another terminal is picked up while running.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if runConfig == nil || runConfig.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runConfig.Watch != nil {
		go func() {
			if err := runConfig.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cmd.PrintErrf("account watcher stopped: %v\n", err)
			}
		}()
	}

	cmd.Println("keyward running. Press Ctrl+C to stop.")
	err := runConfig.Scheduler.Start(ctx, newPrintingObserver(cmd.OutOrStdout()))
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}

	cmd.Println("keyward stopped.")
	return nil
}

// printingObserver writes manager notifications as lines of text.
type printingObserver struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newPrintingObserver(out io.Writer) *printingObserver {
	return &printingObserver{out: out, now: time.Now}
}

func (o *printingObserver) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "%s "+format+"\n", append([]any{o.now().Format("15:04:05")}, args...)...)
}

func (o *printingObserver) AccountDataChanged(data domain.AccountData) {
	switch {
	case data.AccountNumber == "":
		o.printf("logged out")
	case !data.HasExpiry():
		o.printf("account %s: checking expiry", maskAccountNumber(data.AccountNumber))
	default:
		o.printf("account %s: expires %s, %s",
			maskAccountNumber(data.AccountNumber), formatDate(data.Expiry), remainingTime(data, o.now()))
	}
}

func (o *printingObserver) AccountAlert(alert domain.AccountAlert) {
	switch alert.Reason {
	case domain.AlertAccountExpired:
		o.printf("account %s is out of time", maskAccountNumber(alert.AccountNumber))
	case domain.AlertInvalidAccount:
		o.printf("account %s was rejected by the authority; log in again", maskAccountNumber(alert.AccountNumber))
	default:
		o.printf("account %s: %s", maskAccountNumber(alert.AccountNumber), alert.Reason)
	}
}

func (o *printingObserver) KeyRotated(event domain.KeyRotationEvent) {
	o.printf("rotated key, new public key %s", event.PublicKey)
}
