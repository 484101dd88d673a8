package jsonrpc

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// CodeInvalidAccount is the error code the authority returns for an unknown
// or revoked account token.
const CodeInvalidAccount = -200

// ErrMalformedResponse indicates the authority answered with something that
// is not a JSON-RPC response. It matches domain.ErrRPC.
var ErrMalformedResponse = fmt.Errorf("jsonrpc: malformed response: %w", domain.ErrRPC)

// RPCError is a JSON-RPC error object returned by the authority.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc: error %d: %s", e.Code, e.Message)
}

// Is maps the error code onto the domain taxonomy.
func (e *RPCError) Is(target error) bool {
	if e.Code == CodeInvalidAccount {
		return target == domain.ErrInvalidAccount
	}
	return target == domain.ErrRPC
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	Method     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jsonrpc: %s: unexpected status %d", e.Method, e.StatusCode)
}

// Is reports 429 and 5xx as transient and everything else as an RPC failure.
func (e *StatusError) Is(target error) bool {
	if IsRetryableStatus(e.StatusCode) {
		return target == domain.ErrTransient
	}
	return target == domain.ErrRPC
}

// IsRetryableStatus returns true for status codes worth retrying.
func IsRetryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// IsInvalidAccount checks if the error is the authority rejecting the account.
func IsInvalidAccount(err error) bool {
	return errors.Is(err, domain.ErrInvalidAccount)
}

// transient wraps a network level failure.
func transient(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrTransient, method, err)
}
