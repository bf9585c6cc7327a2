package rawdata

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

var (
	// TOI logs are space-aligned text; columns are separated by two or more spaces.
	toiSplitRe = regexp.MustCompile(`\s{2,}`)
	// e.g. En608_TOI_underwaysampletimes.txt
	toiCruiseRe = regexp.MustCompile(`^([^_]+)_`)
)

// ParseDiscreteSamples reads a TOI discrete-sample log: a header line then
// rows of time, pump type, latitude, longitude and an ignored trailing
// column. Samples carry the cruise named by the file.
func ParseDiscreteSamples(path string) ([]domain.DiscreteSample, error) {
	text, err := readText(path)
	if err != nil {
		return nil, err
	}
	cruise := DiscreteLogCruise(path)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var samples []domain.DiscreteSample
	for n, line := range lines {
		if n == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := toiSplitRe.Split(strings.TrimSpace(line), -1)
		if len(fields) < 4 {
			return nil, &domain.MalformedInputError{
				File:   path,
				Reason: fmt.Sprintf("line %d: want at least 4 columns, got %d", n+1, len(fields)),
			}
		}
		ts, err := parseTimestamp(fields[0])
		if err != nil {
			return nil, &domain.MalformedInputError{File: path, Reason: fmt.Sprintf("line %d: %v", n+1, err)}
		}
		pump, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &domain.MalformedInputError{File: path, Reason: fmt.Sprintf("line %d: pump type %q", n+1, fields[1])}
		}
		lat, err := parseFloatOrNaN(fields[2])
		if err != nil {
			return nil, &domain.MalformedInputError{File: path, Reason: fmt.Sprintf("line %d: %v", n+1, err)}
		}
		lon, err := parseFloatOrNaN(fields[3])
		if err != nil {
			return nil, &domain.MalformedInputError{File: path, Reason: fmt.Sprintf("line %d: %v", n+1, err)}
		}
		samples = append(samples, domain.DiscreteSample{Cruise: cruise, Time: ts, PumpType: pump, Latitude: lat, Longitude: lon})
	}
	return samples, nil
}

// DiscreteLogCruise returns the cruise named by a TOI log file name, or ""
// when the name has no "<cruise>_" prefix.
func DiscreteLogCruise(path string) string {
	m := toiCruiseRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
