// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// # Execution model
//
// Each background manager owns one SerialQueue. Every state mutation and
// every callback delivery happens on that queue, so events reach
// subscribers in the order their cycles completed. Network I/O runs in
// separate goroutines and posts its result back onto the queue, where it is
// discarded unless the cycle that issued it is still current.
//
// Services are pure Go with no CGO or external dependencies.
package services
