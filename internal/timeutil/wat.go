package timeutil

import (
	"time"
)

// WAT is West Africa Time (UTC+1), the timezone receipts are dated in
var WAT *time.Location

func init() {
	var err error
	WAT, err = time.LoadLocation("Africa/Lagos")
	if err != nil {
		// Fallback: create fixed zone if tzdata is not available
		WAT = time.FixedZone("WAT", 1*60*60)
	}
}

// Now returns the current time in WAT
func Now() time.Time {
	return time.Now().In(WAT)
}

// ParseDate parses a canonical YYYY-MM-DD date in WAT
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, WAT)
}

// CanonicalDate reduces a provider timestamp (RFC3339 or already a date) to YYYY-MM-DD.
// Receipt hashes are derived from this string so it must not depend on locale.
func CanonicalDate(value string) (string, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t.Format(DateLayout), nil
	}
	if len(value) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, value[:len(DateLayout)]); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", &time.ParseError{Layout: DateLayout, Value: value}
}

// Common layouts
const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02 Jan 2006"
)
