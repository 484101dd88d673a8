package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/keyward/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "keyward", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("home"))
}

func TestRootCmd_BootstrapUsesHomeFlag(t *testing.T) {
	var gotHome string
	SetBootstrap(func(home string) (*Services, error) {
		gotHome = home
		return &Services{Account: &mockAccountService{}}, nil
	})
	t.Cleanup(func() {
		SetBootstrap(nil)
		SetServices(nil)
		homeDir = ""
	})

	home := filepath.Join(t.TempDir(), "state")
	out, err := execute(t, "--home", home, "account", "show")
	require.NoError(t, err)
	assert.Equal(t, home, gotHome)
	assert.Contains(t, out, "Not logged in")
}

func TestRootCmd_BootstrapError(t *testing.T) {
	SetBootstrap(func(string) (*Services, error) {
		return nil, errors.New("database is locked")
	})
	t.Cleanup(func() { SetBootstrap(nil) })

	_, err := execute(t, "status")
	assert.ErrorContains(t, err, "database is locked")
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	called := false
	SetBootstrap(func(string) (*Services, error) {
		called = true
		return &Services{}, nil
	})
	t.Cleanup(func() { SetBootstrap(nil) })

	_, err := execute(t, "version")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	t.Cleanup(func() {
		verbose = false
		logger.SetVerbose(false)
	})

	_, err := execute(t, "--verbose", "version")
	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestExecute_ClosesServices(t *testing.T) {
	closed := false
	setupServices(t, &Services{Close: func() error {
		closed = true
		return errors.New("close failed")
	}})
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background())
	assert.True(t, closed)
	assert.ErrorContains(t, err, "close failed")
}

func TestDefaultHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	home, err := DefaultHome()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".keyward"), home)
}
