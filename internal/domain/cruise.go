package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var cruisePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateCruise checks that cruise is a plain identifier such as "en608"
// or "AR28B" that is safe to use as a path element. Other names wrap
// ErrDataNotFound.
func ValidateCruise(cruise string) error {
	if !cruisePattern.MatchString(strings.ToLower(cruise)) {
		return fmt.Errorf("cruise %q: %w", cruise, ErrDataNotFound)
	}
	return nil
}
