package rawdata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// underwayFormat describes one vessel's underway file convention.
type underwayFormat struct {
	// files matches daily file names for a resolution in seconds.
	files func(resolution int) *regexp.Regexp
	// comment marks header lines to skip; zero for none.
	comment rune
	// fixes converts one file's table into samples and the models it carries.
	fixes func(t *Table) ([]domain.Fix, []string, error)
}

var underwayFormats = map[domain.Vessel]underwayFormat{
	domain.VesselEndeavor: {
		files: func(resolution int) *regexp.Regexp {
			// Data60Sec_Daily_20180204-000000.csv
			return regexp.MustCompile(fmt.Sprintf(`^Data%dSec_Daily_\d+-\d+\.csv$`, resolution))
		},
		comment: '#',
		fixes:   endeavorFixes,
	},
	domain.VesselArmstrong: {
		files: func(int) *regexp.Regexp {
			// AR180204_0000.csv
			return regexp.MustCompile(`^AR\d+_\d+\.csv$`)
		},
		fixes: armstrongFixes,
	},
}

// UnderwayTimeColumn is the time column of the underway product.
const UnderwayTimeColumn = "datetime_iso8601"

var gpsLatRe = regexp.MustCompile(`^gps_([a-z0-9]+)_latitude$`)

// ReadUnderway compiles the daily underway files in dir into a location
// index using the vessel's format. There is no fallback between vessels.
func ReadUnderway(dir string, vessel domain.Vessel, resolution int) (*domain.LocationIndex, error) {
	format, ok := underwayFormats[vessel]
	if !ok {
		return nil, fmt.Errorf("underway format for %s: %w", vessel, domain.ErrUnsupportedVessel)
	}
	if resolution != 1 && resolution != 60 {
		return nil, fmt.Errorf("underway resolution must be 1 or 60, got %d", resolution)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("underway directory %s: %w", dir, domain.ErrDataNotFound)
	}
	re := format.files(resolution)
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && re.MatchString(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s underway files in %s: %w", vessel, dir, domain.ErrDataNotFound)
	}
	sort.Strings(paths)

	var (
		fixes  []domain.Fix
		models []string
	)
	for _, p := range paths {
		records, err := readRecords(p, format.comment)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		got, fileModels, err := format.fixes(NewTable(p, records[0], records[1:]))
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, got...)
		for _, m := range fileModels {
			if !contains(models, m) {
				models = append(models, m)
			}
		}
	}
	return domain.NewLocationIndex(fixes, models), nil
}

// GPSColumns returns the underway product column names for a model.
func GPSColumns(model string) (lat, lon string) {
	return "gps_" + model + "_latitude", "gps_" + model + "_longitude"
}

func endeavorFixes(t *Table) ([]domain.Fix, []string, error) {
	if err := t.Require(UnderwayTimeColumn); err != nil {
		return nil, nil, err
	}
	var models []string
	for _, c := range t.Columns() {
		m := gpsLatRe.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		if _, lon := GPSColumns(m[1]); t.Has(lon) {
			models = append(models, m[1])
		}
	}
	if len(models) == 0 {
		return nil, nil, &domain.MalformedInputError{
			File:    t.File(),
			Columns: []string{"gps_<model>_latitude", "gps_<model>_longitude"},
			Reason:  "no gps columns",
		}
	}

	fixes := make([]domain.Fix, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, err := parseTimestamp(t.Value(i, UnderwayTimeColumn))
		if err != nil {
			return nil, nil, rowError(t.File(), i, err)
		}
		fix := domain.Fix{Time: ts, Positions: make(map[string]domain.LatLon, len(models))}
		for _, m := range models {
			latCol, lonCol := GPSColumns(m)
			ll, err := parseLatLon(t.Value(i, latCol), t.Value(i, lonCol))
			if err != nil {
				return nil, nil, rowError(t.File(), i, err)
			}
			fix.Positions[m] = ll
		}
		fixes = append(fixes, fix)
	}
	return fixes, models, nil
}

const (
	armstrongModel      = "dec"
	armstrongDateLayout = "2006/01/02"
	armstrongTimeLayout = "15:04:05.000"
)

func armstrongFixes(t *Table) ([]domain.Fix, []string, error) {
	if err := t.Require("date_gmt", "time_gmt", "dec_lat", "dec_lon"); err != nil {
		return nil, nil, err
	}
	fixes := make([]domain.Fix, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, err := time.ParseInLocation(armstrongDateLayout+" "+armstrongTimeLayout,
			t.Value(i, "date_gmt")+" "+t.Value(i, "time_gmt"), time.UTC)
		if err != nil {
			return nil, nil, rowError(t.File(), i, err)
		}
		ll, err := parseLatLon(t.Value(i, "dec_lat"), t.Value(i, "dec_lon"))
		if err != nil {
			return nil, nil, rowError(t.File(), i, err)
		}
		fixes = append(fixes, domain.Fix{Time: ts, Positions: map[string]domain.LatLon{armstrongModel: ll}})
	}
	return fixes, []string{armstrongModel}, nil
}

func parseLatLon(lat, lon string) (domain.LatLon, error) {
	la, err := parseFloatOrNaN(lat)
	if err != nil {
		return domain.LatLon{}, err
	}
	lo, err := parseFloatOrNaN(lon)
	if err != nil {
		return domain.LatLon{}, err
	}
	return domain.LatLon{Lat: la, Lon: lo}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
