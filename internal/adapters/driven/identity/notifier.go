// Package identity provides the account number store and its change feed.
package identity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// Ensure Notifier implements the interfaces.
var (
	_ driven.IdentityFeed       = (*Notifier)(nil)
	_ driven.AccountNumberStore = (*Notifier)(nil)
)

type subscriber struct {
	id       driven.SubscriptionID
	listener func(string)
}

// Notifier is an in-memory account number holder that publishes changes to
// its subscribers in subscription order.
type Notifier struct {
	// publishing serialises deliveries so listeners see changes in order.
	publishing sync.Mutex

	mu          sync.Mutex
	current     string
	subscribers []subscriber
}

// NewNotifier creates a notifier holding accountNumber.
func NewNotifier(accountNumber string) *Notifier {
	return &Notifier{current: accountNumber}
}

// Subscribe registers listener and delivers the current account number
// before returning.
func (n *Notifier) Subscribe(listener func(accountNumber string)) driven.SubscriptionID {
	n.publishing.Lock()
	defer n.publishing.Unlock()

	id := driven.SubscriptionID(uuid.NewString())

	n.mu.Lock()
	n.subscribers = append(n.subscribers, subscriber{id: id, listener: listener})
	current := n.current
	n.mu.Unlock()

	listener(current)
	return id
}

// Unsubscribe removes a listener.
func (n *Notifier) Unsubscribe(id driven.SubscriptionID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subscribers {
		if s.id == id {
			n.subscribers = append(n.subscribers[:i], n.subscribers[i+1:]...)
			return
		}
	}
}

// AccountNumber returns the current account number.
func (n *Notifier) AccountNumber() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// SetAccountNumber replaces the account number and notifies subscribers if
// it changed.
func (n *Notifier) SetAccountNumber(accountNumber string) error {
	n.Publish(accountNumber)
	return nil
}

// Publish notifies subscribers of accountNumber unless it is already current.
func (n *Notifier) Publish(accountNumber string) {
	n.publishing.Lock()
	defer n.publishing.Unlock()

	n.mu.Lock()
	if n.current == accountNumber {
		n.mu.Unlock()
		return
	}
	n.current = accountNumber
	listeners := make([]func(string), len(n.subscribers))
	for i, s := range n.subscribers {
		listeners[i] = s.listener
	}
	n.mu.Unlock()

	for _, listener := range listeners {
		listener(accountNumber)
	}
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}
