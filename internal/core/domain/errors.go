package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotLoggedIn indicates no account number is configured.
	ErrNotLoggedIn = errors.New("not logged in")

	// Authority Errors.

	// ErrInvalidAccount indicates the authority rejected the account.
	// It is terminal for a polling cycle.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrTransient indicates a network or timeout failure that should be retried.
	ErrTransient = errors.New("transient failure")

	// ErrRPC indicates the authority rejected a request or could not be reached.
	ErrRPC = errors.New("rpc failure")

	// Configuration Errors.

	// ErrConfigurationRead indicates the stored tunnel configuration could not be read.
	ErrConfigurationRead = errors.New("configuration read failure")

	// ErrConfigurationWrite indicates the stored tunnel configuration could not be updated.
	ErrConfigurationWrite = errors.New("configuration write failure")
)

// RotationOp identifies the step of a key rotation cycle that failed.
type RotationOp string

// Key rotation failure steps.
const (
	// RotationOpRPC is a failed key replacement at the authority.
	RotationOpRPC RotationOp = "rpc"

	// RotationOpReadTunnelConfiguration is a failed configuration load.
	RotationOpReadTunnelConfiguration RotationOp = "read tunnel configuration"

	// RotationOpUpdateTunnelConfiguration is a failed configuration update.
	RotationOpUpdateTunnelConfiguration RotationOp = "update tunnel configuration"

	// RotationOpGenerateKey is a failed local key generation.
	RotationOpGenerateKey RotationOp = "generate key"
)

// RotationError is returned by a failed key rotation cycle.
type RotationError struct {
	Op  RotationOp
	Err error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

func (e *RotationError) Unwrap() error {
	return e.Err
}

// Is reports the taxonomy sentinel matching the failed step, so callers can
// use errors.Is(err, ErrRPC) without knowing the concrete error type.
func (e *RotationError) Is(target error) bool {
	switch e.Op {
	case RotationOpRPC:
		return target == ErrRPC
	case RotationOpReadTunnelConfiguration:
		return target == ErrConfigurationRead
	case RotationOpUpdateTunnelConfiguration:
		return target == ErrConfigurationWrite
	default:
		return false
	}
}
