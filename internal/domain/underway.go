package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
)

// LocationIndex answers "where was the vessel at time T" for one cruise's
// underway GPS track.
type LocationIndex struct {
	fixes  []Fix
	models []string
}

// NewLocationIndex sorts fixes by time and records the GPS receiver models
// in discovery order. The first model is the default for Lookup.
func NewLocationIndex(fixes []Fix, models []string) *LocationIndex {
	sorted := slices.Clone(fixes)
	slices.SortStableFunc(sorted, func(a, b Fix) int { return a.Time.Compare(b.Time) })
	return &LocationIndex{fixes: sorted, models: slices.Clone(models)}
}

// Models returns the GPS receiver models present in the track.
func (x *LocationIndex) Models() []string {
	return slices.Clone(x.models)
}

// Fixes returns a copy of the time-ordered samples.
func (x *LocationIndex) Fixes() []Fix {
	return slices.Clone(x.fixes)
}

// Len returns the number of samples.
func (x *LocationIndex) Len() int {
	return len(x.fixes)
}

// Lookup returns the position of the default GPS model at t.
func (x *LocationIndex) Lookup(t time.Time) (LatLon, error) {
	if len(x.models) == 0 {
		return LatLon{}, ErrEmptyTrack
	}
	return x.LookupModel(t, x.models[0])
}

// LookupModel returns the most recent sample at or before t for the given
// model. Positions are carried forward, never interpolated. Times before
// the first sample clamp to the first sample. A sample without a position
// for model yields NaN coordinates.
func (x *LocationIndex) LookupModel(t time.Time, model string) (LatLon, error) {
	if len(x.fixes) == 0 {
		return LatLon{}, ErrEmptyTrack
	}
	if !slices.Contains(x.models, model) {
		return LatLon{}, fmt.Errorf("gps model %q not in track (have %v)", model, x.models)
	}
	// first index strictly after t, minus one
	i := sort.Search(len(x.fixes), func(i int) bool { return x.fixes[i].Time.After(t) }) - 1
	if i < 0 {
		i = 0
	}
	ll, ok := x.fixes[i].Positions[model]
	if !ok {
		// the receiver was not logged in this fix's file
		return LatLon{Lat: math.NaN(), Lon: math.NaN()}, nil
	}
	return ll, nil
}
