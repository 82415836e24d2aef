package notify

import "time"

// BusinessHours defines the daytime window; everything outside it is night-time
type BusinessHours struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// DefaultBusinessHours is 07:00 to 22:00 local time
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{StartHour: 7, EndHour: 22, Location: time.Local}
}

func (b BusinessHours) local(t time.Time) time.Time {
	if b.Location == nil {
		return t
	}
	return t.In(b.Location)
}

// IsNight reports whether t falls outside business hours
func (b BusinessHours) IsNight(t time.Time) bool {
	h := b.local(t).Hour()
	return h < b.StartHour || h >= b.EndHour
}

// NextBusinessTime returns the start of the next business-hours window after t.
// During business hours t itself is returned.
func (b BusinessHours) NextBusinessTime(t time.Time) time.Time {
	if !b.IsNight(t) {
		return t
	}

	lt := b.local(t)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), b.StartHour, 0, 0, 0, lt.Location())
	if lt.Hour() >= b.EndHour {
		start = start.AddDate(0, 0, 1)
	}
	return start
}
