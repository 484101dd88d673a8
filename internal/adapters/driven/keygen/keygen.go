// Package keygen generates Curve25519 key pairs for tunnel interfaces.
package keygen

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/curve25519"

	"github.com/custodia-labs/keyward/internal/core/domain"
	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// Ensure Curve25519 implements the interface.
var _ driven.KeyGenerator = (*Curve25519)(nil)

// Curve25519 generates clamped Curve25519 key pairs.
type Curve25519 struct {
	random io.Reader
}

// New creates a generator reading from crypto/rand.
func New() *Curve25519 {
	return &Curve25519{random: rand.Reader}
}

// NewWithReader creates a generator reading entropy from r.
func NewWithReader(r io.Reader) *Curve25519 {
	return &Curve25519{random: r}
}

// Generate returns a fresh key pair stamped with creationDate.
func (g *Curve25519) Generate(creationDate time.Time) (domain.PrivateKey, error) {
	var private domain.Key
	if _, err := io.ReadFull(g.random, private[:]); err != nil {
		return domain.PrivateKey{}, fmt.Errorf("reading entropy: %w", err)
	}
	clamp(&private)

	public, err := PublicKey(private)
	if err != nil {
		return domain.PrivateKey{}, err
	}

	return domain.PrivateKey{
		Private:      private,
		Public:       public,
		CreationDate: creationDate,
	}, nil
}

// PublicKey derives the public half of private.
func PublicKey(private domain.Key) (domain.Key, error) {
	raw, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return domain.Key{}, fmt.Errorf("deriving public key: %w", err)
	}
	var public domain.Key
	copy(public[:], raw)
	return public, nil
}

func clamp(k *domain.Key) {
	k[0] &= 248
	k[31] = (k[31] & 127) | 64
}
