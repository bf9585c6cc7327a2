package pipeline

import (
	"context"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
)

// EventLogSource reads a cruise's event log and its overlays. Absent
// inputs return errors wrapping domain.ErrDataNotFound.
type EventLogSource interface {
	EventLog(ctx context.Context, cruise string) ([]domain.Event, error)
	Corrections(ctx context.Context, cruise string) ([]domain.Correction, error)
	Additions(ctx context.Context, cruise string) ([]domain.Event, error)
	DiscreteSamples(ctx context.Context, cruise string) ([]domain.DiscreteSample, error)
	CTDHeaders(ctx context.Context, cruise string) ([]domain.CTDHeader, error)
}

// TrackSource reads a cruise's underway GPS track.
type TrackSource interface {
	Track(ctx context.Context, cruise string) (*domain.LocationIndex, error)
}

// StationProvider supplies a cruise's station list.
type StationProvider interface {
	Stations(ctx context.Context, cruise string) ([]domain.Station, error)
}

// CruiseLister enumerates the cruises with raw data.
type CruiseLister interface {
	Cruises(ctx context.Context) ([]string, error)
}

// ProductStore persists rendered products.
type ProductStore interface {
	Write(ctx context.Context, runID, cruise, product string, t products.Table) (products.Sidecar, error)
}

// Notifier announces written products.
type Notifier interface {
	Notify(ctx context.Context, meta products.Sidecar) error
}

// ReadinessChecker reports whether a dependency is usable.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Sources bundles the raw inputs for product generation.
type Sources struct {
	Events   EventLogSource
	Tracks   TrackSource
	Stations StationProvider
}
