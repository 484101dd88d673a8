package driven

import (
	"context"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// AccountAuthority is the remote account and key authority.
// The wire protocol belongs to the implementation.
type AccountAuthority interface {
	// GetAccountData fetches the account expiry.
	// Returns an error wrapping domain.ErrInvalidAccount when the authority
	// rejects the account. Any other error is treated as transient.
	GetAccountData(ctx context.Context, accountToken string) (domain.AccountData, error)

	// ReplaceKey replaces oldKey with newKey for the account and returns the
	// addresses assigned to the new key.
	ReplaceKey(ctx context.Context, accountToken string, oldKey, newKey domain.Key) (domain.AssociatedAddresses, error)
}
