package rawdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// iso8601Layouts are the ISO-8601 forms accepted for additions. Values
// without a zone are UTC.
var iso8601Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// lenientLayouts extend the ISO forms with what spreadsheet exports and
// instrument software write in practice.
var lenientLayouts = append(append([]string(nil), iso8601Layouts...),
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/06 15:04",
	"Jan 02 2006 15:04:05",
	"2006-01-02",
)

// parseISO8601 parses s strictly as ISO-8601.
func parseISO8601(s string) (time.Time, error) {
	return parseWithLayouts(s, iso8601Layouts)
}

// parseTimestamp accepts ISO-8601 and the common export formats.
func parseTimestamp(s string) (time.Time, error) {
	return parseWithLayouts(s, lenientLayouts)
}

func parseWithLayouts(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseFloatOrNaN parses a numeric cell; blanks and "NaN" give NaN.
func parseFloatOrNaN(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}
