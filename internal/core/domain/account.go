package domain

import "time"

// AccountData is the (account number, expiry) pair reported by the expiry tracker.
// A zero Expiry means the expiry is not yet known.
type AccountData struct {
	// AccountNumber identifies the account. Empty when logged out.
	AccountNumber string

	// Expiry is when the paid period of the account ends.
	Expiry time.Time
}

// HasExpiry returns true if the expiry has been resolved.
func (a AccountData) HasExpiry() bool {
	return !a.Expiry.IsZero()
}

// HasExpired returns true if the expiry is known and not after now.
func (a AccountData) HasExpired(now time.Time) bool {
	return a.HasExpiry() && a.WillHaveExpiredAt(now)
}

// WillHaveExpiredAt returns true if the account will have run out of time at t.
func (a AccountData) WillHaveExpiredAt(t time.Time) bool {
	return !a.Expiry.After(t)
}

// AlertReason describes a terminal conclusion about an account.
type AlertReason string

// Account alert reasons.
const (
	// AlertAccountExpired means the account ran out of time.
	AlertAccountExpired AlertReason = "account_expired"

	// AlertInvalidAccount means the authority does not recognise the account.
	AlertInvalidAccount AlertReason = "invalid_account"
)

// AccountAlert is raised when the tracker concludes the account cannot be used.
// The owning layer typically reacts by showing an out-of-time flow or signing out.
type AccountAlert struct {
	AccountNumber string
	Reason        AlertReason
}
