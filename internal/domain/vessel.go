package domain

import (
	"fmt"
	"strings"
)

// Vessel identifies the research vessel that ran a cruise. Each vessel logs
// underway data in its own file layout.
type Vessel int

const (
	VesselUnknown Vessel = iota
	VesselEndeavor
	VesselArmstrong
)

func (v Vessel) String() string {
	switch v {
	case VesselEndeavor:
		return "Endeavor"
	case VesselArmstrong:
		return "Armstrong"
	default:
		return "unknown"
	}
}

// cruisePrefixes maps cruise identifier prefixes to vessels, e.g. "en608" or
// "AR28B".
var cruisePrefixes = map[string]Vessel{
	"en": VesselEndeavor,
	"ar": VesselArmstrong,
}

// VesselForCruise resolves the vessel from a cruise identifier.
func VesselForCruise(cruise string) (Vessel, error) {
	lower := strings.ToLower(strings.TrimSpace(cruise))
	if len(lower) >= 2 {
		if v, ok := cruisePrefixes[lower[:2]]; ok {
			return v, nil
		}
	}
	return VesselUnknown, fmt.Errorf("cruise %q: %w", cruise, ErrUnsupportedVessel)
}
