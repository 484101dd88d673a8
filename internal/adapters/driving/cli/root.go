package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/keyward/internal/core/ports/driving"
	"github.com/custodia-labs/keyward/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// Services are the core ports the commands drive.
type Services struct {
	Settings driving.SettingsService
	Account  driving.AccountService
	Status   driving.StatusService
	Tracker  driving.AccountExpiryTracker
	Run      *RunConfig

	// Close releases everything the services hold. Optional.
	Close func() error
}

// Bootstrap builds the services for the given home directory.
type Bootstrap func(home string) (*Services, error)

var (
	bootstrap Bootstrap
	current   *Services

	settingsService driving.SettingsService
	accountService  driving.AccountService
	statusService   driving.StatusService
	expiryTracker   driving.AccountExpiryTracker
	runConfig       *RunConfig

	verbose bool
	homeDir string
)

var rootCmd = &cobra.Command{
	Use:   "keyward",
	Short: "Background credential lifecycle scheduler",
	Long: `keyward keeps the tunnel key of an account fresh and watches the
account expiry.

Log in once with 'keyward account login', then leave 'keyward run' running.
It rotates the key pair on schedule, re-checks the account expiry and
reports when the account runs out of time.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "state directory (default ~/.keyward)")
}

// SetVersion sets the version reported by 'keyward version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap sets the function that builds services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	current = s
	if s == nil {
		settingsService, accountService, statusService, expiryTracker, runConfig = nil, nil, nil, nil, nil
		return
	}
	settingsService = s.Settings
	accountService = s.Account
	statusService = s.Status
	expiryTracker = s.Tracker
	runConfig = s.Run
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if current != nil && current.Close != nil {
		if closeErr := current.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}
	return err
}

// DefaultHome returns ~/.keyward.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".keyward"), nil
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipBootstrap] != "" || bootstrap == nil || current != nil {
		return nil
	}

	home := homeDir
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return err
		}
	}
	logger.Debug("cli: using home %s", home)

	s, err := bootstrap(home)
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}
