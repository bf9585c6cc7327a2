package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
)

// ErrUnknownProduct is returned for product names outside products.All.
var ErrUnknownProduct = errors.New("unknown product")

// Generator renders data products for a cruise.
type Generator struct {
	sources  Sources
	timeline *TimelineBuilder
	matchKm  float64
	logger   *slog.Logger
}

// NewGenerator creates a Generator. matchKm is the station match radius;
// non-positive selects domain.DefaultMatchRadiusKm.
func NewGenerator(sources Sources, matchKm float64, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{
		sources:  sources,
		timeline: NewTimelineBuilder(sources.Events, sources.Tracks, logger, metrics),
		matchKm:  matchKm,
		logger:   logger,
	}
}

// Timeline builds the cruise's event timeline.
func (g *Generator) Timeline(ctx context.Context, cruise string) (domain.Timeline, BuildReport, error) {
	return g.timeline.Build(ctx, cruise)
}

// Product renders one product table.
func (g *Generator) Product(ctx context.Context, cruise, product string) (products.Table, error) {
	switch product {
	case products.ProductElog:
		tl, _, err := g.timeline.Build(ctx, cruise)
		if err != nil {
			return products.Table{}, err
		}
		return products.EventsTable(tl), nil

	case products.ProductUnderway:
		if g.sources.Tracks == nil {
			return products.Table{}, fmt.Errorf("underway for %s: %w", cruise, domain.ErrDataNotFound)
		}
		idx, err := g.sources.Tracks.Track(ctx, cruise)
		if err != nil {
			return products.Table{}, err
		}
		return products.TrackTable(idx), nil

	case products.ProductStations:
		stations, err := g.stations(ctx, cruise)
		if err != nil {
			return products.Table{}, err
		}
		return products.StationsTable(stations), nil

	case products.ProductCTDMetadata:
		headers, err := g.sources.Events.CTDHeaders(ctx, cruise)
		if err != nil {
			return products.Table{}, err
		}
		stations, err := g.stations(ctx, cruise)
		if err != nil {
			if !domain.IsNotFound(err) {
				return products.Table{}, err
			}
			g.logger.Debug("no station list, ctd metadata without station names", "cruise", cruise, "error", err)
		}
		return products.CTDMetadataTable(headers, domain.NewStationLocator(stations, g.matchKm)), nil

	default:
		return products.Table{}, fmt.Errorf("%q: %w", product, ErrUnknownProduct)
	}
}

// CastStations returns the cast to station cross-reference for a cruise,
// built from its reconciled timeline.
func (g *Generator) CastStations(ctx context.Context, cruise string) (*domain.CastStations, error) {
	tl, _, err := g.timeline.Build(ctx, cruise)
	if err != nil {
		return nil, err
	}
	return domain.NewCastStations(tl.Events()), nil
}

func (g *Generator) stations(ctx context.Context, cruise string) ([]domain.Station, error) {
	if g.sources.Stations == nil {
		return nil, fmt.Errorf("stations for %s: %w", cruise, domain.ErrDataNotFound)
	}
	return g.sources.Stations.Stations(ctx, cruise)
}
