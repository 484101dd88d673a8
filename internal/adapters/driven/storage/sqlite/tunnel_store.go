package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// tunnelStore implements driven.TunnelConfigStore.
type tunnelStore struct {
	store *Store
}

var _ driven.TunnelConfigStore = (*tunnelStore)(nil)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Load retrieves the entry for reference.
func (s *tunnelStore) Load(ctx context.Context, reference string) (*domain.KeychainEntry, error) {
	return loadEntry(ctx, s.store.db, reference)
}

// Update reads, mutates and writes the entry inside one transaction.
func (s *tunnelStore) Update(ctx context.Context, reference string, mutate driven.TunnelConfigMutator) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	entry, err := loadEntry(ctx, tx, reference)
	if err != nil {
		return err
	}
	if err := mutate(&entry.TunnelConfiguration); err != nil {
		return err
	}
	if err := saveEntry(ctx, tx, *entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tunnel configuration: %w", err)
	}
	return nil
}

// Save creates or replaces an entry.
func (s *tunnelStore) Save(ctx context.Context, entry domain.KeychainEntry) error {
	return saveEntry(ctx, s.store.db, entry)
}

// Delete removes the entry for reference.
func (s *tunnelStore) Delete(ctx context.Context, reference string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM tunnel_configurations WHERE reference = ?", reference)
	if err != nil {
		return fmt.Errorf("deleting tunnel configuration: %w", err)
	}
	return nil
}

func loadEntry(ctx context.Context, q queryer, reference string) (*domain.KeychainEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT reference, account_token, private_key, public_key, creation_date, addresses
		FROM tunnel_configurations WHERE reference = ?
	`, reference)

	var entry domain.KeychainEntry
	var privateKey, publicKey, addresses string
	var creationDate sql.NullString
	if err := row.Scan(&entry.Reference, &entry.AccountToken,
		&privateKey, &publicKey, &creationDate, &addresses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning tunnel configuration: %w", err)
	}

	iface := &entry.TunnelConfiguration.Interface
	var err error
	if iface.PrivateKey.Private, err = domain.ParseKey(privateKey); err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if iface.PrivateKey.Public, err = domain.ParseKey(publicKey); err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	iface.PrivateKey.CreationDate = parseNullableTime(creationDate)

	var prefixes []netip.Prefix
	if err := json.Unmarshal([]byte(addresses), &prefixes); err != nil {
		return nil, fmt.Errorf("decoding addresses: %w", err)
	}
	if len(prefixes) > 0 {
		iface.Addresses = prefixes
	}

	return &entry, nil
}

func saveEntry(ctx context.Context, q queryer, entry domain.KeychainEntry) error {
	if entry.Reference == "" {
		return domain.ErrInvalidInput
	}

	iface := entry.TunnelConfiguration.Interface
	prefixes := iface.Addresses
	if prefixes == nil {
		prefixes = []netip.Prefix{}
	}
	addresses, err := json.Marshal(prefixes)
	if err != nil {
		return fmt.Errorf("encoding addresses: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO tunnel_configurations
			(reference, account_token, private_key, public_key, creation_date, addresses, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
			account_token = excluded.account_token,
			private_key = excluded.private_key,
			public_key = excluded.public_key,
			creation_date = excluded.creation_date,
			addresses = excluded.addresses,
			updated_at = excluded.updated_at
	`, entry.Reference, entry.AccountToken,
		iface.PrivateKey.Private.String(), iface.PrivateKey.Public.String(),
		formatNullableTime(iface.PrivateKey.CreationDate), string(addresses),
		formatTime(time.Now()))

	if err != nil {
		return fmt.Errorf("saving tunnel configuration: %w", err)
	}
	return nil
}
