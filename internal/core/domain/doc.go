// Package domain defines the core business entities for Keyward.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - AccountData: An account number and its (possibly unknown) expiry
//   - PrivateKey: A Curve25519 key pair with its creation date
//   - KeychainEntry: A stored tunnel configuration bound to an account
//   - KeyRotationEvent: The outcome of a key rotation cycle
//   - RetryPolicy: Pure attempt-to-delay functions
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
