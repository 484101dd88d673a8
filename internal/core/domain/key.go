package domain

import (
	"encoding/base64"
	"fmt"
	"net/netip"
	"time"
)

// KeySize is the length in bytes of a Curve25519 key.
const KeySize = 32

// Key is a raw Curve25519 key. Its text form is standard base64.
type Key [KeySize]byte

// ParseKey decodes a base64 encoded key.
func ParseKey(s string) (Key, error) {
	var k Key
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("%w: decoding key: %v", ErrInvalidInput, err)
	}
	if len(raw) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidInput, KeySize, len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// String returns the base64 form of the key.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// IsZero returns true if the key is all zeroes.
func (k Key) IsZero() bool {
	return k == Key{}
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PrivateKey is a key pair together with the time it was generated.
type PrivateKey struct {
	// Private is the secret half of the pair.
	Private Key

	// Public is derived from Private.
	Public Key

	// CreationDate is when the pair was generated.
	CreationDate time.Time
}

// AssociatedAddresses are the tunnel addresses the authority assigns to a key.
type AssociatedAddresses struct {
	IPv4 netip.Prefix
	IPv6 netip.Prefix
}

// Prefixes returns the valid addresses in IPv4, IPv6 order.
func (a AssociatedAddresses) Prefixes() []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, 2)
	if a.IPv4.IsValid() {
		prefixes = append(prefixes, a.IPv4)
	}
	if a.IPv6.IsValid() {
		prefixes = append(prefixes, a.IPv6)
	}
	return prefixes
}

// InterfaceConfiguration is the local side of a tunnel.
type InterfaceConfiguration struct {
	PrivateKey PrivateKey
	Addresses  []netip.Prefix
}

// TunnelConfiguration is the stored tunnel configuration.
type TunnelConfiguration struct {
	Interface InterfaceConfiguration
}

// KeychainEntry is the record held by the secure configuration store.
type KeychainEntry struct {
	// Reference is the persistent reference the record is looked up by.
	Reference string

	// AccountToken is the account the tunnel configuration belongs to.
	AccountToken string

	// TunnelConfiguration holds the current key and addresses.
	TunnelConfiguration TunnelConfiguration
}

// KeyRotationEvent is emitted at the end of every successful rotation cycle.
type KeyRotationEvent struct {
	// IsNew is true only when a new key replaced the old one in this cycle.
	IsNew bool

	// CreationDate is the creation date of the key now in use.
	CreationDate time.Time

	// PublicKey is the public half of the key now in use.
	PublicKey Key
}

// DefaultRotationInterval is how long a key stays valid before it is replaced.
const DefaultRotationInterval = 24 * time.Hour

// NextRotation returns when a key created at creationDate is due for rotation.
func NextRotation(creationDate time.Time, interval time.Duration) time.Time {
	return creationDate.Add(interval)
}

// IsKeyDue returns true if a key created at creationDate must be rotated at now.
func IsKeyDue(creationDate, now time.Time, interval time.Duration) bool {
	return !NextRotation(creationDate, interval).After(now)
}
