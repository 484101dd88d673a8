package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the configured account",
}

var accountLoginCmd = &cobra.Command{
	Use:   "login [account-number]",
	Short: "Log in with an account number",
	Long: `Store the account number and provision a tunnel configuration.

If no account number is given it is read from the terminal without echo.
The provisioned key is replaced by the first rotation cycle of 'keyward run'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAccountLogin,
}

var accountLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the account and its tunnel configuration",
	Args:  cobra.NoArgs,
	RunE:  runAccountLogout,
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the account, its key and its expiry",
	Args:  cobra.NoArgs,
	RunE:  runAccountShow,
}

// expiryWait bounds how long 'account show' waits for the authority.
var expiryWait time.Duration

func init() {
	accountShowCmd.Flags().DurationVar(&expiryWait, "wait", 10*time.Second,
		"how long to wait for the account expiry (0 skips the lookup)")

	accountCmd.AddCommand(accountLoginCmd)
	accountCmd.AddCommand(accountLogoutCmd)
	accountCmd.AddCommand(accountShowCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountLogin(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	var number string
	if len(args) > 0 {
		number = args[0]
	} else {
		cmd.Print("Enter account number: ")
		number = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	if err := accountService.Login(cmd.Context(), number); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cmd.Printf("Logged in as %s\n", maskAccountNumber(strings.TrimSpace(number)))
	return nil
}

func runAccountLogout(cmd *cobra.Command, _ []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	if err := accountService.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	cmd.Println("Logged out.")
	return nil
}

func runAccountShow(cmd *cobra.Command, _ []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	entry, err := accountService.Current(cmd.Context())
	if errors.Is(err, domain.ErrNotLoggedIn) {
		cmd.Println("Not logged in. Run 'keyward account login' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read account: %w", err)
	}

	now := time.Now()
	key := entry.TunnelConfiguration.Interface.PrivateKey
	cmd.Printf("Account: %s\n", maskAccountNumber(entry.AccountToken))
	cmd.Printf("Public key: %s\n", key.Public)
	if key.CreationDate.IsZero() {
		cmd.Println("Key created: pending first rotation")
	} else {
		cmd.Printf("Key created: %s (%s)\n", formatDate(key.CreationDate), formatRelative(key.CreationDate, now))
	}
	for _, prefix := range entry.TunnelConfiguration.Interface.Addresses {
		cmd.Printf("Address: %s\n", prefix)
	}

	if expiryTracker == nil || expiryWait <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), expiryWait)
	defer cancel()

	data, alert, err := awaitAccountData(ctx, expiryTracker)
	switch {
	case err != nil:
		cmd.Printf("Expiry: unavailable (%v)\n", err)
	case alert != nil && alert.Reason == domain.AlertInvalidAccount:
		cmd.Println("Expiry: the account was rejected by the authority")
	default:
		cmd.Printf("Expiry: %s (%s)\n", formatDate(data.Expiry), remainingTime(data, time.Now()))
	}
	return nil
}

// awaitAccountData subscribes to tracker until the expiry resolves, an alert
// is raised or ctx ends.
func awaitAccountData(
	ctx context.Context,
	tracker driving.AccountExpiryTracker,
) (domain.AccountData, *domain.AccountAlert, error) {
	changes := make(chan domain.AccountData, 8)
	alerts := make(chan domain.AccountAlert, 1)

	tracker.SetOnAccountAlert(func(alert domain.AccountAlert) {
		select {
		case alerts <- alert:
		default:
		}
	})
	tracker.SetOnAccountDataChange(func(data domain.AccountData) {
		select {
		case changes <- data:
		default:
		}
	})
	defer tracker.SetOnAccountAlert(nil)
	defer tracker.SetOnAccountDataChange(nil)

	var last domain.AccountData
	for {
		select {
		case data := <-changes:
			last = data
			if data.HasExpiry() {
				return data, nil, nil
			}
		case alert := <-alerts:
			// The snapshot behind the alert is delivered before it.
			for drained := false; !drained; {
				select {
				case data := <-changes:
					last = data
				default:
					drained = true
				}
			}
			return last, &alert, nil
		case <-ctx.Done():
			return last, nil, ctx.Err()
		}
	}
}

// readSecret reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
