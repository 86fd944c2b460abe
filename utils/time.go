// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// DayLayout is the UTC calendar day key used by click aggregations
const DayLayout = "2006-01-02"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// IsExpiredAt reports whether expiresAt is set and not after now.
// A link expiring exactly now is already expired.
func IsExpiredAt(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	return !now.Before(*expiresAt)
}

// DayKey formats t as its UTC calendar day
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
