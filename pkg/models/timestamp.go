package models

import "time"

// timestampLayouts lists the encodings observed across capture channels, in
// the order they are tried. Go elides the optional fractional part, so each
// layout also accepts its whole-second form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a prompt timestamp leniently. The second return is
// false when no layout matched; callers fall back to the current time
// rather than failing the record.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestampOrNow parses leniently and substitutes the current time for
// anything unparsable.
func ParseTimestampOrNow(s string) time.Time {
	if t, ok := ParseTimestamp(s); ok {
		return t
	}
	return time.Now()
}
