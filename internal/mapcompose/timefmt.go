package mapcompose

import (
	"strings"
	"time"
)

const expiresNotAvailable = "Not available"

const expiryDisplayLayout = "Jan 02, 2006, 03:04 PM MST"

// FormatExpiry converts a source timestamp to the target zone and formats
// it for the banner. Handles a literal "Z" UTC suffix and numeric offsets
// with or without a colon separator. An unparsable value falls back to the
// raw string rather than failing the compose.
func FormatExpiry(expires string, loc *time.Location) string {
	if expires == "" {
		return expiresNotAvailable
	}
	t, err := parseOffsetTime(expires)
	if err != nil {
		return expires
	}
	return t.In(loc).Format(expiryDisplayLayout)
}

func parseOffsetTime(s string) (time.Time, error) {
	if strings.HasSuffix(s, "Z") {
		return time.Parse("2006-01-02T15:04:05Z", s)
	}
	if t, err := time.Parse("2006-01-02T15:04:05-07:00", s); err == nil {
		return t, nil
	}
	// Offset without the colon separator, e.g. -0500.
	return time.Parse("2006-01-02T15:04:05-0700", s)
}
