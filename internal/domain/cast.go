package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// castPrefixRe matches the non-digit prefix of a cast label, e.g. "C" in "C012".
var castPrefixRe = regexp.MustCompile(`^[^0-9]+`)

// CastNumber extracts the integer from a cast label, ignoring a leading
// non-digit prefix: "004" -> 4, "C12" -> 12. It returns false for empty or
// non-numeric labels.
func CastNumber(label string) (int, bool) {
	s := castPrefixRe.ReplaceAllString(strings.TrimSpace(label), "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CastStations resolves station labels for casts from the first CTD event
// logged for each cast.
type CastStations struct {
	byLabel map[string]string
	widths  []int
}

// NewCastStations indexes the CTD events of a timeline by cast label. Only
// the first event per label counts.
func NewCastStations(events []Event) *CastStations {
	cs := &CastStations{byLabel: make(map[string]string)}
	seenWidth := make(map[int]bool)
	for _, e := range events {
		if e.Instrument != InstrumentCTD {
			continue
		}
		label := strings.TrimSpace(e.Cast)
		if label == "" {
			continue
		}
		if _, ok := cs.byLabel[label]; ok {
			continue
		}
		cs.byLabel[label] = e.Station
		if !seenWidth[len(label)] {
			seenWidth[len(label)] = true
			cs.widths = append(cs.widths, len(label))
		}
	}
	sort.Ints(cs.widths)
	return cs
}

// StationFor returns the station recorded for cast, or "" when the cast has
// no CTD event. Labels are compared exactly first, then as zero-padded
// numbers using the widths of the existing labels, so "4", "004" and 4 all
// resolve to the same cast.
func (cs *CastStations) StationFor(cast string) string {
	if cs == nil {
		return ""
	}
	cast = strings.TrimSpace(cast)
	if station, ok := cs.byLabel[cast]; ok {
		return station
	}
	n, ok := CastNumber(cast)
	if !ok {
		return ""
	}
	for _, w := range cs.widths {
		if station, ok := cs.byLabel[fmt.Sprintf("%0*d", w, n)]; ok {
			return station
		}
	}
	return ""
}

// StationForNumber is StationFor for an integer cast number.
func (cs *CastStations) StationForNumber(cast int) string {
	return cs.StationFor(strconv.Itoa(cast))
}

// Len returns the number of distinct cast labels indexed.
func (cs *CastStations) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.byLabel)
}
