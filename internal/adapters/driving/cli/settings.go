package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the rotation, expiry and authority settings.

Settings live in config.toml under the home directory and use dot-notation
keys such as rotation.interval or authority.url.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a single setting. Durations use Go syntax, e.g. 24h or 300s.

Run 'keyward settings keys' for the recognised keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore the default of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Rotation]")
	cmd.Printf("  Interval: %s\n", settings.Rotation.Interval)
	cmd.Printf("  Retry interval: %s\n", settings.Rotation.RetryInterval)
	cmd.Println()

	cmd.Println("[Expiry]")
	cmd.Printf("  Backoff base: %s\n", settings.Expiry.BackoffBase)
	cmd.Printf("  Backoff max exponent: %d\n", settings.Expiry.BackoffMaxExponent)
	cmd.Printf("  Grace delay: %s\n", settings.Expiry.GraceDelay)
	cmd.Println()

	cmd.Println("[Authority]")
	cmd.Printf("  URL: %s\n", settings.Authority.URL)
	cmd.Printf("  Timeout: %s\n", settings.Authority.Timeout)
	cmd.Printf("  Requests per second: %g\n", settings.Authority.RequestsPerSecond)
	cmd.Printf("  Burst: %d\n", settings.Authority.Burst)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Keychain reference: %s\n", settings.KeychainReference)
	cmd.Printf("  Journal keep: %d\n", settings.JournalKeep)

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	cmd.Println("Restart 'keyward run' for the change to take effect.")
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Reset(args[0]); err != nil {
		return fmt.Errorf("failed to reset %s: %w", args[0], err)
	}

	cmd.Printf("Reset %s to its default\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}
