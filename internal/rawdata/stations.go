package rawdata

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Station list columns, in the order of headerless station spreadsheets.
var stationColumns = []string{"long_name", "name", "latitude", "longitude", "depth", "comments"}

const waypointMarker = "waypoint only"

var (
	notDegMinRe = regexp.MustCompile(`[^\d. ]`)
	depthUnitRe = regexp.MustCompile(`\s*m$`)
)

// ParseStations reads a station list. Files with a header row naming
// "name", "latitude" and "longitude" are read by column; otherwise the
// columns are positional (long name, name, latitude, longitude, depth,
// comments). Rows marked "waypoint only" are excluded.
func ParseStations(path string) ([]domain.Station, error) {
	records, err := readRecords(path, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("station list %s is empty: %w", path, domain.ErrDataNotFound)
	}

	var t *Table
	if hasStationHeader(records[0]) {
		t = NewTable(path, records[0], records[1:])
	} else {
		t = NewTable(path, stationColumns, records)
	}
	if err := t.Require("name", "latitude", "longitude"); err != nil {
		return nil, err
	}

	var out []domain.Station
	for i := 0; i < t.Len(); i++ {
		comment := t.Value(i, "comments")
		if comment == "" {
			comment = t.Value(i, "comment")
		}
		if strings.Contains(strings.ToLower(comment), waypointMarker) {
			continue
		}
		lat, err := parseCoordinate(t.Value(i, "latitude"), false)
		if err != nil {
			return nil, rowError(path, i, err)
		}
		lon, err := parseCoordinate(t.Value(i, "longitude"), true)
		if err != nil {
			return nil, rowError(path, i, err)
		}
		depth, err := parseDepth(firstNonEmpty(t.Value(i, "depth"), t.Value(i, "depth_m")))
		if err != nil {
			return nil, rowError(path, i, err)
		}
		out = append(out, domain.Station{
			Name:      t.Value(i, "name"),
			LongName:  t.Value(i, "long_name"),
			Latitude:  lat,
			Longitude: lon,
			DepthM:    depth,
			Comment:   comment,
		})
	}
	return out, nil
}

func hasStationHeader(row []string) bool {
	names := make(map[string]bool, len(row))
	for _, c := range row {
		names[CleanColumnName(c)] = true
	}
	return names["name"] && names["latitude"] && names["longitude"]
}

// parseCoordinate accepts decimal degrees, degrees and decimal minutes with
// a hemisphere letter ("41 11.53 N"), or bare degrees and minutes
// ("40° 32.5'"). Bare longitudes are taken as west.
func parseCoordinate(s string, west bool) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing coordinate")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if degMinHemiRe.MatchString(s) {
		return parseDegMinHemi(s)
	}
	fields := strings.Fields(notDegMinRe.ReplaceAllString(s, " "))
	if len(fields) != 2 {
		return 0, fmt.Errorf("unrecognised coordinate %q", s)
	}
	deg, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("unrecognised coordinate %q", s)
	}
	mins, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognised coordinate %q", s)
	}
	v := math.Round((float64(deg)+mins/60)*1e4) / 1e4
	if west {
		v = -v
	}
	return v, nil
}

// parseDepth parses "75 m" or "75"; blank gives NaN.
func parseDepth(s string) (float64, error) {
	return parseFloatOrNaN(depthUnitRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
