package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDataNotFound marks a missing or ambiguous raw input. Callers wrap it
	// with the path or cruise that could not be resolved.
	ErrDataNotFound = errors.New("data not found")

	// ErrUnsupportedVessel is returned when a cruise identifier does not map
	// to a vessel with a known underway format.
	ErrUnsupportedVessel = errors.New("unsupported vessel")

	// ErrEmptyTrack is returned by lookups against an index with no fixes.
	ErrEmptyTrack = errors.New("underway track is empty")
)

// MalformedInputError reports a raw file whose layout does not match what the
// parser expects.
type MalformedInputError struct {
	File    string
	Columns []string
	Reason  string
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "malformed input %s", e.File)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " (columns: %s)", strings.Join(e.Columns, ", "))
	}
	return b.String()
}

// IsNotFound reports whether err should surface as a "not found" response:
// missing data, malformed input or a vessel without an underway format.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var malformed *MalformedInputError
	return errors.Is(err, ErrDataNotFound) ||
		errors.Is(err, ErrUnsupportedVessel) ||
		errors.As(err, &malformed)
}
