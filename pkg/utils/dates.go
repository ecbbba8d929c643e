package utils

import "time"

// DateLayout is the wire format for day-scoped resources.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value, defaulting to today when empty.
// The result is anchored to local midnight so delivery windows and call
// times derived from it compare correctly against the wall clock.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return Midnight(time.Now()), nil
	}
	t, err := time.ParseInLocation(DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// Midnight truncates a timestamp to the start of its local day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
