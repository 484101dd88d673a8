package driven

// SubscriptionID identifies a feed subscription.
type SubscriptionID string

// IdentityFeed publishes account number changes.
// An empty account number means logged out.
type IdentityFeed interface {
	// Subscribe registers listener. The current account number is delivered
	// to the listener before Subscribe returns.
	Subscribe(listener func(accountNumber string)) SubscriptionID

	// Unsubscribe removes a listener. Unknown ids are ignored.
	Unsubscribe(id SubscriptionID)
}

// AccountNumberStore persists the current account number.
// Implementations that also implement IdentityFeed notify their subscribers
// when the stored value changes.
type AccountNumberStore interface {
	// AccountNumber returns the stored account number, or "" when logged out.
	AccountNumber() string

	// SetAccountNumber replaces the stored account number.
	SetAccountNumber(accountNumber string) error
}
