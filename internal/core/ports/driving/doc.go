// Package driving defines interfaces that the owning layer (CLI, daemon, UI)
// uses to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// All manager operations are fire-and-forget: they return immediately and
// results surface asynchronously through the registered callbacks.
//
// Implementations of these interfaces live in internal/core/services.
package driving
