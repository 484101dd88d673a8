package driven

import (
	"time"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// KeyGenerator creates new key pairs locally.
type KeyGenerator interface {
	// Generate returns a fresh key pair stamped with creationDate.
	Generate(creationDate time.Time) (domain.PrivateKey, error)
}
