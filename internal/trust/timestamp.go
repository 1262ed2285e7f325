package trust

import (
	"fmt"
	"strings"
	"time"
)

// Accepted occurred_at layouts. Zone-less forms are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a client-supplied occurred_at value. The whole
// value must match one of the accepted layouts; anything else is rejected
// with ErrInvalidTimestamp, never partially parsed or defaulted.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// ValidateUsername rejects blank identifying fields before any storage
// access.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrMissingUsername
	}
	return nil
}
