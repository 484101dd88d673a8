package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// Ensure TunnelConfigStore implements the interface.
var _ driven.TunnelConfigStore = (*TunnelConfigStore)(nil)

// TunnelConfigStore is an in-memory implementation of driven.TunnelConfigStore.
type TunnelConfigStore struct {
	mu      sync.RWMutex
	entries map[string]domain.KeychainEntry
}

// NewTunnelConfigStore creates a new in-memory tunnel configuration store.
func NewTunnelConfigStore() *TunnelConfigStore {
	return &TunnelConfigStore{
		entries: make(map[string]domain.KeychainEntry),
	}
}

// Load retrieves the entry for reference.
func (s *TunnelConfigStore) Load(_ context.Context, reference string) (*domain.KeychainEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry = cloneEntry(entry)
	return &entry, nil
}

// Update applies mutate to the entry for reference under the store lock.
func (s *TunnelConfigStore) Update(ctx context.Context, reference string, mutate driven.TunnelConfigMutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[reference]
	if !ok {
		return domain.ErrNotFound
	}
	entry = cloneEntry(entry)
	if err := mutate(&entry.TunnelConfiguration); err != nil {
		return err
	}
	s.entries[reference] = entry
	return nil
}

// Save creates or replaces an entry.
func (s *TunnelConfigStore) Save(_ context.Context, entry domain.KeychainEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Reference] = cloneEntry(entry)
	return nil
}

// Delete removes the entry for reference.
func (s *TunnelConfigStore) Delete(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, reference)
	return nil
}

func cloneEntry(entry domain.KeychainEntry) domain.KeychainEntry {
	entry.TunnelConfiguration.Interface.Addresses = slices.Clone(entry.TunnelConfiguration.Interface.Addresses)
	return entry
}
