package rawdata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// File name patterns within raw/<cruise>/<type>/.
const (
	patternCorrections = "*corrections*"
	patternAdditions   = "*additions*"
	patternTOI         = "*_TOI_*.txt"
)

// Repository reads every raw input for a cruise. Absent inputs are
// reported with errors wrapping domain.ErrDataNotFound.
type Repository struct {
	resolver   *Resolver
	resolution int
}

// NewRepository creates a Repository reading underway files at the given
// resolution in seconds.
func NewRepository(resolver *Resolver, resolution int) *Repository {
	return &Repository{resolver: resolver, resolution: resolution}
}

// Resolver returns the underlying file resolver.
func (r *Repository) Resolver() *Resolver {
	return r.resolver
}

// Cruises lists the cruises with raw data.
func (r *Repository) Cruises(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.resolver.Cruises()
}

// EventLog reads the base event log, <cruise>*elog*.csv.
func (r *Repository) EventLog(ctx context.Context, cruise string) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := r.resolver.FindFiles(cruise, TypeElog, baseLogPattern(cruise))
	if err != nil {
		return nil, fmt.Errorf("base event log: %w", err)
	}
	var base []string
	for _, p := range paths {
		// overlay sheets often share the elog prefix
		if !matchAny(filepath.Base(p), []string{patternCorrections, patternAdditions}) {
			base = append(base, p)
		}
	}
	if len(base) != 1 {
		return nil, fmt.Errorf("base event log for %s (%d candidates): %w", cruise, len(base), domain.ErrDataNotFound)
	}
	return ParseEventLog(base[0])
}

// Corrections reads the corrections sheet (CSV or XLSX).
func (r *Repository) Corrections(ctx context.Context, cruise string) ([]domain.Correction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.resolver.FindFile(cruise, TypeElog, patternCorrections+".csv", patternCorrections+".xlsx")
	if err != nil {
		return nil, err
	}
	return ParseCorrections(path)
}

// Additions reads the additions sheet (CSV or XLSX).
func (r *Repository) Additions(ctx context.Context, cruise string) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.resolver.FindFile(cruise, TypeElog, patternAdditions+".csv", patternAdditions+".xlsx")
	if err != nil {
		return nil, err
	}
	return ParseAdditions(path)
}

// DiscreteSamples reads the TOI discrete-sample log.
func (r *Repository) DiscreteSamples(ctx context.Context, cruise string) ([]domain.DiscreteSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.resolver.FindFile(cruise, TypeElog, patternTOI)
	if err != nil {
		return nil, err
	}
	return ParseDiscreteSamples(path)
}

// CTDHeaders parses the cruise's CTD .hdr files, ordered by cast.
func (r *Repository) CTDHeaders(ctx context.Context, cruise string) ([]domain.CTDHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := r.resolver.RawDirectory(cruise, TypeCTD)
	if err != nil {
		return nil, err
	}
	return ParseHeaderDir(dir)
}

// Track reads the underway GPS feed using the cruise's vessel format.
func (r *Repository) Track(ctx context.Context, cruise string) (*domain.LocationIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vessel, err := domain.VesselForCruise(cruise)
	if err != nil {
		return nil, err
	}
	dir, err := r.resolver.RawDirectory(cruise, TypeUnderway)
	if err != nil {
		return nil, err
	}
	return ReadUnderway(dir, vessel, r.resolution)
}

// Stations reads metadata/<cruise>_stations.{csv,xlsx}; the legacy
// <CRUISE>_station_list.xlsx name is also accepted.
func (r *Repository) Stations(ctx context.Context, cruise string) ([]domain.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := strings.ToLower(cruise)
	path, err := r.resolver.FindFile(cruise, TypeMetadata,
		c+"_stations.csv", c+"_stations.xlsx", c+"_station_list.xlsx")
	if err != nil {
		return nil, err
	}
	return ParseStations(path)
}

// CheckReadiness reports whether the raw data tree is reachable.
func (r *Repository) CheckReadiness(ctx context.Context) error {
	return r.resolver.CheckReadiness(ctx)
}

func baseLogPattern(cruise string) string {
	return strings.ToLower(cruise) + "*elog*.csv"
}
