package adapters

import (
	"strings"
	"time"
)

// parseRecordTime reads a registry timestamp. Hand-edited registries may
// carry a plain "date time" form; anything unparseable is the zero time.
func parseRecordTime(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateTime, time.DateOnly} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
