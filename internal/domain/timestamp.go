package domain

import (
	"strings"
	"time"
)

// timestampLayout is the stored form of every payload timestamp.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// KST is the zone activity hours are judged in.
var KST = time.FixedZone("KST", 9*60*60)

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// FormatTimestamp renders t in the stored payload form (UTC, milliseconds).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp reads an ISO-like string. Values without a zone are retried
// with "Z" appended, so they are taken as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseWithLayouts(s); ok {
		return t, true
	}
	return parseWithLayouts(s + "Z")
}

func parseWithLayouts(s string) (time.Time, bool) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
