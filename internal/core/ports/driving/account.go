package driving

import (
	"context"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// AccountService manages the locally configured account.
type AccountService interface {
	// Login stores the account number and provisions a tunnel configuration
	// with a freshly generated key.
	Login(ctx context.Context, accountNumber string) error

	// Logout clears the account number and removes the tunnel configuration.
	Logout(ctx context.Context) error

	// Current returns the stored keychain entry.
	// Returns domain.ErrNotLoggedIn if no account is configured.
	Current(ctx context.Context) (*domain.KeychainEntry, error)
}
