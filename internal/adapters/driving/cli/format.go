package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/keyward/internal/core/domain"
)

// durationUntilExpiry describes the time left on an account. Between 26 and
// 90 days it is counted in days, otherwise the coarsest humanized unit is used.
func durationUntilExpiry(expiry, now time.Time) string {
	days := int(expiry.Sub(now).Hours() / 24)
	if days >= 26 && days <= 90 {
		return fmt.Sprintf("%d days", days)
	}
	return strings.TrimSpace(humanize.RelTime(now, expiry, "", ""))
}

// remainingTime is the "X left" form shown next to an account.
func remainingTime(data domain.AccountData, now time.Time) string {
	switch {
	case !data.HasExpiry():
		return "expiry unknown"
	case data.HasExpired(now):
		return "out of time"
	default:
		return durationUntilExpiry(data.Expiry, now) + " left"
	}
}

// formatDate renders a timestamp in local time, or "never" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// formatRelative renders a timestamp relative to now, e.g. "3 hours ago".
func formatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// maskAccountNumber hides all but the last four digits.
func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
