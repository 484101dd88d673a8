// Command keyward runs the background credential lifecycle scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/keyward/internal/adapters/driven/authority/jsonrpc"
	"github.com/custodia-labs/keyward/internal/adapters/driven/clock"
	"github.com/custodia-labs/keyward/internal/adapters/driven/config/file"
	"github.com/custodia-labs/keyward/internal/adapters/driven/identity"
	"github.com/custodia-labs/keyward/internal/adapters/driven/keygen"
	"github.com/custodia-labs/keyward/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/keyward/internal/adapters/driving/cli"
	"github.com/custodia-labs/keyward/internal/core/services"
	"github.com/custodia-labs/keyward/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// AccountFileName is the file holding the logged-in account number.
const AccountFileName = "account"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap wires the adapters and core services rooted at home.
func bootstrap(home string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("config: %v; using defaults", err)
		settings = settingsService.GetDefaults()
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	identityStore, err := identity.NewFileStore(filepath.Join(home, AccountFileName))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading account: %w", err)
	}

	authority, err := jsonrpc.New(settings.Authority)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating authority client: %w", err)
	}

	clk := clock.System{}
	keys := keygen.New()
	journal := services.NewTaskJournal(store.SchedulerStore(), settings.JournalKeep)

	tracker := services.NewAccountExpiryTracker(settings.Expiry, authority, identityStore, clk, journal)
	rotation := services.NewKeyRotationManager(
		settings.KeychainReference,
		settings.Rotation,
		store.TunnelConfigStore(),
		authority,
		keys,
		clk,
		journal,
	)
	scheduler := services.NewScheduler(tracker, rotation, store.SchedulerStore(), clk)

	return &cli.Services{
		Settings: settingsService,
		Account:  services.NewAccountService(settings.KeychainReference, identityStore, store.TunnelConfigStore(), keys),
		Status:   services.NewStatusService(store.SchedulerStore()),
		Tracker:  tracker,
		Run: &cli.RunConfig{
			Scheduler: scheduler,
			Watch:     identityStore.Watch,
		},
		Close: func() error {
			tracker.Close()
			rotation.Close()
			return store.Close()
		},
	}, nil
}
