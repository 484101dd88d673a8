// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the background managers to function:
//
//   - AccountAuthority: Remote account and key authority (RPC client)
//   - TunnelConfigStore: Secure store holding the tunnel configuration
//   - IdentityFeed: Source of account number changes
//   - Clock: Time source and timer factory
//   - KeyGenerator: Local key pair generation
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the managers degrade gracefully:
//
//   - SchedulerStore: Journal of task state and cycle history. Without it,
//     cycles are only logged.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
