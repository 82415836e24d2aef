// Package expiry computes when an unaccepted booking stops being offered.
package expiry

import "time"

const (
	// ShortNoticeMinutes is the lead time under which a job expires at its due time
	ShortNoticeMinutes = 90
	// SameDayMinutes is the lead time under which a job expires 90 minutes after creation
	SameDayMinutes = 24 * 60
	// ThreeDayMinutes is the lead time under which a job expires 16 hours after creation
	ThreeDayMinutes = 72 * 60
)

// At returns the will-expire-at instant for a job due at due and created at created.
// Lead time is measured in whole minutes.
func At(due, created time.Time) time.Time {
	lead := due.Sub(created)
	if lead < 0 {
		lead = -lead
	}
	minutes := int64(lead / time.Minute)

	switch {
	case minutes <= ShortNoticeMinutes:
		return due
	case minutes <= SameDayMinutes:
		return created.Add(90 * time.Minute)
	case minutes <= ThreeDayMinutes:
		return created.Add(16 * time.Hour)
	default:
		return due.Add(-48 * time.Hour)
	}
}
