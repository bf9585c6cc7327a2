package domain

import (
	"math"
	"slices"
)

// DefaultMatchRadiusKm is the farthest a position may be from a station and
// still be labelled with it.
const DefaultMatchRadiusKm = 2.0

const earthRadiusKm = 6371.0088

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// StationLocator finds the nearest known station to a position.
type StationLocator struct {
	stations []Station
	maxKm    float64
}

// NewStationLocator builds a locator over stations. A non-positive maxKm
// selects DefaultMatchRadiusKm.
func NewStationLocator(stations []Station, maxKm float64) *StationLocator {
	if maxKm <= 0 || math.IsNaN(maxKm) {
		maxKm = DefaultMatchRadiusKm
	}
	return &StationLocator{stations: slices.Clone(stations), maxKm: maxKm}
}

// Nearest returns the closest station and its distance in km. Positions
// with a NaN coordinate, or whose closest station lies beyond the match
// radius, yield ("", NaN).
func (l *StationLocator) Nearest(lat, lon float64) (string, float64) {
	if math.IsNaN(lat) || math.IsNaN(lon) || len(l.stations) == 0 {
		return "", math.NaN()
	}
	best := -1
	bestKm := math.Inf(1)
	for i, s := range l.stations {
		d := HaversineKm(lat, lon, s.Latitude, s.Longitude)
		if d < bestKm {
			best, bestKm = i, d
		}
	}
	if best < 0 || bestKm > l.maxKm {
		return "", math.NaN()
	}
	return l.stations[best].Name, bestKm
}

// StationMatch is the result of a batch lookup.
type StationMatch struct {
	Name       string
	DistanceKm float64
}

// NearestAll runs Nearest for every point, preserving order.
func (l *StationLocator) NearestAll(points []LatLon) []StationMatch {
	out := make([]StationMatch, len(points))
	for i, p := range points {
		name, km := l.Nearest(p.Lat, p.Lon)
		out[i] = StationMatch{Name: name, DistanceKm: km}
	}
	return out
}
