package driven

import (
	"context"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// TunnelConfigMutator modifies a tunnel configuration in place.
// Returning an error aborts the update.
type TunnelConfigMutator func(cfg *domain.TunnelConfiguration) error

// TunnelConfigStore is the secure store holding tunnel configurations,
// addressed by persistent reference.
type TunnelConfigStore interface {
	// Load retrieves the entry for reference.
	// Returns domain.ErrNotFound if no entry exists.
	Load(ctx context.Context, reference string) (*domain.KeychainEntry, error)

	// Update atomically reads, mutates and writes the entry for reference.
	// Returns domain.ErrNotFound if no entry exists.
	Update(ctx context.Context, reference string, mutate TunnelConfigMutator) error

	// Save creates or replaces an entry.
	Save(ctx context.Context, entry domain.KeychainEntry) error

	// Delete removes the entry for reference. Deleting a missing entry is not an error.
	Delete(ctx context.Context, reference string) error
}
