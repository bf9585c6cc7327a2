package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
)

// TimelineBuilder assembles a cruise's event timeline from the base log and
// its optional overlays.
type TimelineBuilder struct {
	events  EventLogSource
	tracks  TrackSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTimelineBuilder creates a builder. tracks may be nil to skip underway
// back-fill.
func NewTimelineBuilder(events EventLogSource, tracks TrackSource, logger *slog.Logger, metrics *observability.Metrics) *TimelineBuilder {
	return &TimelineBuilder{events: events, tracks: tracks, logger: logger, metrics: metrics}
}

// Build runs the construction steps in order: base log, corrections,
// additions, TOI discrete samples, CTD deploy events, underway back-fill,
// incubation cast normalisation and a final sort. Only a missing or
// malformed base log is an error; optional steps are recorded in the report.
func (b *TimelineBuilder) Build(ctx context.Context, cruise string) (domain.Timeline, BuildReport, error) {
	report := BuildReport{Cruise: cruise}

	base, err := b.events.EventLog(ctx, cruise)
	if err != nil {
		return domain.Timeline{}, report, fmt.Errorf("building timeline for %s: %w", cruise, err)
	}
	tl := domain.NewTimeline(base)

	tl = b.step(ctx, &report, StepCorrections, tl, func(tl domain.Timeline) (domain.Timeline, error) {
		corrections, err := b.events.Corrections(ctx, cruise)
		if err != nil {
			return tl, err
		}
		return tl.ApplyCorrections(corrections), nil
	})

	tl = b.step(ctx, &report, StepAdditions, tl, func(tl domain.Timeline) (domain.Timeline, error) {
		additions, err := b.events.Additions(ctx, cruise)
		if err != nil {
			return tl, err
		}
		return tl.AddEvents(additions), nil
	})

	tl = b.step(ctx, &report, StepDiscreteSamples, tl, func(tl domain.Timeline) (domain.Timeline, error) {
		samples, err := b.events.DiscreteSamples(ctx, cruise)
		if err != nil {
			return tl, err
		}
		return tl.ReplaceAction(domain.ActionTOIDiscrete, domain.DiscreteSampleEvents(cruise, samples)), nil
	})

	tl = b.step(ctx, &report, StepCTDHeaders, tl, func(tl domain.Timeline) (domain.Timeline, error) {
		headers, err := b.events.CTDHeaders(ctx, cruise)
		if err != nil {
			return tl, err
		}
		return tl.ReplaceCTDEvents(headers, domain.NewCastStations(tl.Events())), nil
	})

	tl = b.step(ctx, &report, StepUnderwayBackfill, tl, func(tl domain.Timeline) (domain.Timeline, error) {
		if b.tracks == nil {
			return tl, fmt.Errorf("no track source: %w", domain.ErrDataNotFound)
		}
		idx, err := b.tracks.Track(ctx, cruise)
		if err != nil {
			return tl, err
		}
		return tl.FillLocations(idx.Lookup)
	})

	tl = tl.NormalizeCasts(domain.InstrumentIncubation, domain.IncubationCastPrefix).Sorted()

	if err := ctx.Err(); err != nil {
		return domain.Timeline{}, report, err
	}

	report.Events = tl.Len()
	b.metrics.TimelineEvents.Set(float64(tl.Len()))
	b.logger.Info("timeline built", "cruise", cruise, "events", tl.Len(), "failed_steps", len(report.Failed()))
	return tl, report, nil
}

// step runs one optional step. On any error the input timeline is kept and
// the outcome is recorded.
func (b *TimelineBuilder) step(ctx context.Context, report *BuildReport, name string, tl domain.Timeline, fn func(domain.Timeline) (domain.Timeline, error)) domain.Timeline {
	if ctx.Err() != nil {
		return tl
	}
	out, err := fn(tl)
	outcome := classify(err)
	report.Steps = append(report.Steps, StepResult{Step: name, Outcome: outcome, Err: err})
	b.metrics.EnrichmentSteps.WithLabelValues(name, string(outcome)).Inc()

	switch outcome {
	case OutcomeAbsent:
		b.logger.Debug("timeline step skipped, input absent", "cruise", report.Cruise, "step", name, "error", err)
		return tl
	case OutcomeFailed:
		b.logger.Warn("timeline step failed, continuing without it", "cruise", report.Cruise, "step", name, "error", err)
		return tl
	default:
		return out
	}
}
