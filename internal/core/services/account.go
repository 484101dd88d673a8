package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
	"github.com/custodia-labs/keyward/internal/core/ports/driving"
)

// Ensure AccountService implements the interface.
var _ driving.AccountService = (*AccountService)(nil)

// AccountService manages the locally configured account and its tunnel
// configuration.
type AccountService struct {
	reference string
	accounts  driven.AccountNumberStore
	tunnels   driven.TunnelConfigStore
	keygen    driven.KeyGenerator
}

// NewAccountService creates an account service for the configuration stored
// under reference.
func NewAccountService(
	reference string,
	accounts driven.AccountNumberStore,
	tunnels driven.TunnelConfigStore,
	keygen driven.KeyGenerator,
) *AccountService {
	return &AccountService{
		reference: reference,
		accounts:  accounts,
		tunnels:   tunnels,
		keygen:    keygen,
	}
}

// Login stores the account number and provisions a tunnel configuration.
// The provisioned key carries no creation date, so the first rotation cycle
// registers a fresh key with the authority.
func (s *AccountService) Login(ctx context.Context, accountNumber string) error {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return fmt.Errorf("%w: account number is required", domain.ErrInvalidInput)
	}

	key, err := s.keygen.Generate(time.Time{})
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	entry := domain.KeychainEntry{
		Reference:    s.reference,
		AccountToken: accountNumber,
		TunnelConfiguration: domain.TunnelConfiguration{
			Interface: domain.InterfaceConfiguration{PrivateKey: key},
		},
	}
	if err := s.tunnels.Save(ctx, entry); err != nil {
		return fmt.Errorf("save tunnel configuration: %w", err)
	}

	if err := s.accounts.SetAccountNumber(accountNumber); err != nil {
		return fmt.Errorf("save account number: %w", err)
	}

	log.Printf("account: logged in")
	return nil
}

// Logout clears the account number and removes the tunnel configuration.
func (s *AccountService) Logout(ctx context.Context) error {
	if err := s.accounts.SetAccountNumber(""); err != nil {
		return fmt.Errorf("clear account number: %w", err)
	}
	if err := s.tunnels.Delete(ctx, s.reference); err != nil {
		return fmt.Errorf("delete tunnel configuration: %w", err)
	}

	log.Printf("account: logged out")
	return nil
}

// Current returns the stored keychain entry.
func (s *AccountService) Current(ctx context.Context) (*domain.KeychainEntry, error) {
	if s.accounts.AccountNumber() == "" {
		return nil, domain.ErrNotLoggedIn
	}

	entry, err := s.tunnels.Load(ctx, s.reference)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load tunnel configuration: %w", err)
	}
	return entry, nil
}
