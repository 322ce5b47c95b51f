package policy

import "time"

// DateLayout is the TIFF DateTime tag format.
const DateLayout = "2006:01:02 15:04:05"

// ParseDate accepts the TIFF DateTime format or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid("date", s, "expected %q or RFC 3339", DateLayout)
	}
	return t, nil
}
