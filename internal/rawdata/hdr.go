package rawdata

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// castFilenameRes extract cruise and cast from CTD file names. Each vessel
// has its own convention.
var castFilenameRes = []*regexp.Regexp{
	regexp.MustCompile(`^(ar.*)(\d\d\d)`),        // Armstrong: ar28b001.hdr
	regexp.MustCompile(`^(EN\d+).*[Cc]ast(\d+)`), // Endeavor: EN608_Cast12.hdr
}

var (
	nmeaTimeRe   = regexp.MustCompile(`^\* NMEA UTC \(Time\)\s*=\s*(.*)$`)
	nmeaLatRe    = regexp.MustCompile(`^\* NMEA Latitude\s*=\s*(.*)$`)
	nmeaLonRe    = regexp.MustCompile(`^\* NMEA Longitude\s*=\s*(.*)$`)
	degMinHemiRe = regexp.MustCompile(`(\d+)[^\d]+([\d.]+)[^NSEW]*([NSEW])`)
)

const nmeaTimeLayout = "Jan 02 2006 15:04:05"

// CruiseCast extracts the cruise and cast number from a CTD file name.
func CruiseCast(path string) (string, int, error) {
	name := filepath.Base(path)
	for _, re := range castFilenameRes {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		cast, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return m[1], cast, nil
	}
	return "", 0, fmt.Errorf("unable to determine cruise and cast from %q", name)
}

// ParseHeaderFile reads the NMEA time and position from a CTD .hdr file.
func ParseHeaderFile(path string) (domain.CTDHeader, error) {
	cruise, cast, err := CruiseCast(path)
	if err != nil {
		return domain.CTDHeader{}, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}
	text, err := readText(path)
	if err != nil {
		return domain.CTDHeader{}, err
	}

	var timeStr, latStr, lonStr string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r ")
		if strings.HasPrefix(line, "*END*") {
			break
		}
		if m := nmeaTimeRe.FindStringSubmatch(line); m != nil && timeStr == "" {
			timeStr = m[1]
		} else if m := nmeaLatRe.FindStringSubmatch(line); m != nil && latStr == "" {
			latStr = m[1]
		} else if m := nmeaLonRe.FindStringSubmatch(line); m != nil && lonStr == "" {
			lonStr = m[1]
		}
	}
	if timeStr == "" || latStr == "" || lonStr == "" {
		return domain.CTDHeader{}, &domain.MalformedInputError{File: path, Reason: "missing NMEA time or position"}
	}

	ts, err := time.ParseInLocation(nmeaTimeLayout, strings.TrimSpace(timeStr), time.UTC)
	if err != nil {
		return domain.CTDHeader{}, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}
	lat, err := parseDegMinHemi(latStr)
	if err != nil {
		return domain.CTDHeader{}, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}
	lon, err := parseDegMinHemi(lonStr)
	if err != nil {
		return domain.CTDHeader{}, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}

	return domain.CTDHeader{Cruise: cruise, Cast: cast, Time: ts, Latitude: lat, Longitude: lon}, nil
}

// ParseHeaderDir parses every .hdr file in dir, ordered by cast.
func ParseHeaderDir(dir string) ([]domain.CTDHeader, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.hdr"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("hdr files in %s: %w", dir, domain.ErrDataNotFound)
	}
	headers := make([]domain.CTDHeader, 0, len(paths))
	for _, p := range paths {
		h, err := ParseHeaderFile(p)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].Cast < headers[j].Cast })
	return headers, nil
}

// parseDegMinHemi converts "41 11.53 N" style degrees and decimal minutes
// to signed decimal degrees.
func parseDegMinHemi(s string) (float64, error) {
	m := degMinHemiRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognised coordinate %q", s)
	}
	deg, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	mins, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, err
	}
	v := float64(deg) + mins/60
	if m[3] == "S" || m[3] == "W" {
		v = -v
	}
	return v, nil
}
