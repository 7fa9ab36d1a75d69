package utils

import "time"

// StartOfDay returns midnight of t's calendar day in t's location.
// Truncating by 24h would give UTC midnight instead of the local day
// boundary.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
