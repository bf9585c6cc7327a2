package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
)

// Options tune a generation run.
type Options struct {
	// MatchKm is the station match radius for CTD metadata.
	MatchKm float64
	// CacheSize bounds the per-run station and track caches.
	CacheSize int
	// FailFast stops the run at the first failed cruise.
	FailFast bool
	// Products limits which products are generated; empty means all.
	Products []string
}

// ProductResult records one product of a cruise.
type ProductResult struct {
	Product string
	Outcome Outcome
	Sidecar products.Sidecar
	Err     error
}

// CruiseReport records the products generated for one cruise.
type CruiseReport struct {
	Cruise   string
	Products []ProductResult
	Err      error
}

// RunReport summarises a generation run.
type RunReport struct {
	RunID   string
	Cruises []CruiseReport
}

// Failed returns the cruises that failed.
func (r RunReport) Failed() []CruiseReport {
	var out []CruiseReport
	for _, c := range r.Cruises {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Pipeline generates and stores data products for cruises.
type Pipeline struct {
	cruises  CruiseLister
	sources  Sources
	store    ProductStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     Options
	ready    atomic.Bool
	running  atomic.Bool
}

// New creates a Pipeline. notifier may be nil.
func New(cruises CruiseLister, sources Sources, store ProductStore, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		cruises:  cruises,
		sources:  sources,
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// Generator returns an uncached generator over the pipeline's sources for
// on-demand rendering.
func (p *Pipeline) Generator() *Generator {
	return NewGenerator(p.sources, p.opts.MatchKm, p.logger, p.metrics)
}

// Cruises lists the cruises with raw data.
func (p *Pipeline) Cruises(ctx context.Context) ([]string, error) {
	return p.cruises.Cruises(ctx)
}

// CheckReadiness returns nil when the raw data sources are reachable.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if rc, ok := p.cruises.(ReadinessChecker); ok {
		if err := rc.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	if rc, ok := p.sources.Stations.(ReadinessChecker); ok {
		if err := rc.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("station provider: %w", err)
		}
	}
	return nil
}

// Ready reports whether at least one run has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run generates products for the given cruises, or for every cruise when
// none are given. A failing cruise does not stop the others unless
// FailFast is set; all cruise errors are joined into the returned error.
func (p *Pipeline) Run(ctx context.Context, cruises []string) (RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return RunReport{}, errors.New("a generation run is already in progress")
	}
	defer p.running.Store(false)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if len(cruises) == 0 {
		all, err := p.cruises.Cruises(ctx)
		if err != nil {
			return RunReport{}, fmt.Errorf("listing cruises: %w", err)
		}
		cruises = all
	}

	report := RunReport{RunID: products.NewRunID()}
	gen := NewGenerator(p.runSources(), p.opts.MatchKm, p.logger, p.metrics)
	p.logger.Info("generation run started", "run_id", report.RunID, "cruises", len(cruises))

	var errs []error
	for _, cruise := range cruises {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		cr := p.generateCruise(ctx, gen, report.RunID, strings.ToLower(cruise))
		report.Cruises = append(report.Cruises, cr)
		if cr.Err != nil {
			p.metrics.CruiseFailures.Inc()
			p.logger.Error("cruise generation failed", "cruise", cr.Cruise, "error", cr.Err)
			errs = append(errs, cr.Err)
			if p.opts.FailFast {
				break
			}
		}
	}

	p.ready.Store(true)
	p.logger.Info("generation run complete", "run_id", report.RunID,
		"cruises", len(report.Cruises), "failed", len(report.Failed()))
	return report, errors.Join(errs...)
}

// runSources wraps the station and track sources in caches that live for
// one run.
func (p *Pipeline) runSources() Sources {
	s := p.sources
	if s.Stations != nil {
		s.Stations = NewCachedStations(s.Stations, p.opts.CacheSize, p.metrics)
	}
	if s.Tracks != nil {
		s.Tracks = NewCachedTracks(s.Tracks, p.opts.CacheSize)
	}
	return s
}

func (p *Pipeline) products() []string {
	if len(p.opts.Products) == 0 {
		return products.All
	}
	return p.opts.Products
}

// generateCruise renders and stores each product. Absent optional inputs
// skip a product; a missing base log or any other error fails the cruise.
func (p *Pipeline) generateCruise(ctx context.Context, gen *Generator, runID, cruise string) CruiseReport {
	cr := CruiseReport{Cruise: cruise}
	var errs []error
	for _, product := range p.products() {
		res := p.generateProduct(ctx, gen, runID, cruise, product)
		cr.Products = append(cr.Products, res)
		if res.Outcome == OutcomeFailed {
			errs = append(errs, fmt.Errorf("%s %s: %w", cruise, product, res.Err))
			if p.opts.FailFast {
				break
			}
		}
	}
	cr.Err = errors.Join(errs...)
	return cr
}

func (p *Pipeline) generateProduct(ctx context.Context, gen *Generator, runID, cruise, product string) ProductResult {
	start := time.Now()
	res := ProductResult{Product: product}

	table, err := gen.Product(ctx, cruise, product)
	if err == nil {
		res.Sidecar, err = p.store.Write(ctx, runID, cruise, product, table)
	}
	res.Err = err

	switch {
	case err == nil:
		res.Outcome = OutcomeApplied
	case domain.IsNotFound(err) && product != products.ProductElog && !isMalformed(err):
		res.Outcome = OutcomeAbsent
	default:
		res.Outcome = OutcomeFailed
	}
	p.metrics.ProductsGenerated.WithLabelValues(product, string(res.Outcome)).Inc()

	switch res.Outcome {
	case OutcomeApplied:
		p.metrics.ProductGenerationDuration.WithLabelValues(product).Observe(time.Since(start).Seconds())
		p.logger.Info("product written", "cruise", cruise, "product", product, "rows", res.Sidecar.Rows)
		p.notify(ctx, res.Sidecar)
	case OutcomeAbsent:
		p.logger.Debug("product skipped, input absent", "cruise", cruise, "product", product, "error", err)
	}
	return res
}

func (p *Pipeline) notify(ctx context.Context, meta products.Sidecar) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, meta); err != nil {
		p.metrics.NotificationsPublished.WithLabelValues("error").Inc()
		p.logger.Warn("product notification failed", "cruise", meta.Cruise, "product", meta.Product, "error", err)
		return
	}
	p.metrics.NotificationsPublished.WithLabelValues("success").Inc()
}

func isMalformed(err error) bool {
	var malformed *domain.MalformedInputError
	return errors.As(err, &malformed)
}

// ValidProduct reports whether name is a known product.
func ValidProduct(name string) bool {
	return slices.Contains(products.All, name)
}
