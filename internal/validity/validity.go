// Package validity classifies agreements by how close their validity end
// date is to a reference date.
package validity

import "time"

const (
	StatusExpired  = "expired"
	StatusCritical = "critical"
	StatusWarning  = "warning"
	StatusCaution  = "caution"
	StatusCurrent  = "current"
)

// DaysUntil returns the number of whole days from ref to end, comparing
// calendar dates only. Negative when end is in the past.
func DaysUntil(end, ref time.Time) int {
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(ref).Hours() / 24)
}

// Status maps the remaining validity window to a tier.
func Status(end, ref time.Time) string {
	days := DaysUntil(end, ref)
	switch {
	case days <= 0:
		return StatusExpired
	case days <= 30:
		return StatusCritical
	case days <= 60:
		return StatusWarning
	case days <= 120:
		return StatusCaution
	default:
		return StatusCurrent
	}
}
