package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/pipeline"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

var t0 = time.Date(2018, time.February, 4, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func notFound(what, cruise string) error {
	return fmt.Errorf("%s for %s: %w", what, cruise, domain.ErrDataNotFound)
}

// mockEvents serves canned overlays per cruise. Missing entries are absent.
type mockEvents struct {
	logs        map[string][]domain.Event
	corrections map[string][]domain.Correction
	additions   map[string][]domain.Event
	samples     map[string][]domain.DiscreteSample
	headers     map[string][]domain.CTDHeader
	errs        map[string]error // keyed by "<cruise>/<step>"
}

func (m *mockEvents) err(cruise, step string) error {
	return m.errs[cruise+"/"+step]
}

func (m *mockEvents) EventLog(_ context.Context, cruise string) ([]domain.Event, error) {
	if err := m.err(cruise, "elog"); err != nil {
		return nil, err
	}
	events, ok := m.logs[cruise]
	if !ok {
		return nil, notFound("event log", cruise)
	}
	return events, nil
}

func (m *mockEvents) Corrections(_ context.Context, cruise string) ([]domain.Correction, error) {
	if err := m.err(cruise, pipeline.StepCorrections); err != nil {
		return nil, err
	}
	c, ok := m.corrections[cruise]
	if !ok {
		return nil, notFound("corrections", cruise)
	}
	return c, nil
}

func (m *mockEvents) Additions(_ context.Context, cruise string) ([]domain.Event, error) {
	if err := m.err(cruise, pipeline.StepAdditions); err != nil {
		return nil, err
	}
	a, ok := m.additions[cruise]
	if !ok {
		return nil, notFound("additions", cruise)
	}
	return a, nil
}

func (m *mockEvents) DiscreteSamples(_ context.Context, cruise string) ([]domain.DiscreteSample, error) {
	s, ok := m.samples[cruise]
	if !ok {
		return nil, notFound("toi log", cruise)
	}
	return s, nil
}

func (m *mockEvents) CTDHeaders(_ context.Context, cruise string) ([]domain.CTDHeader, error) {
	h, ok := m.headers[cruise]
	if !ok {
		return nil, notFound("ctd headers", cruise)
	}
	return h, nil
}

type mockTracks struct {
	mu     sync.Mutex
	tracks map[string]*domain.LocationIndex
	calls  int
}

func (m *mockTracks) Track(_ context.Context, cruise string) (*domain.LocationIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	idx, ok := m.tracks[cruise]
	if !ok {
		return nil, fmt.Errorf("cruise %q: %w", cruise, domain.ErrUnsupportedVessel)
	}
	return idx, nil
}

type mockStations struct {
	mu       sync.Mutex
	stations map[string][]domain.Station
	calls    int
}

func (m *mockStations) Stations(_ context.Context, cruise string) ([]domain.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	s, ok := m.stations[cruise]
	if !ok {
		return nil, notFound("stations", cruise)
	}
	return s, nil
}

type mockLister struct {
	cruises []string
	err     error
}

func (m *mockLister) Cruises(context.Context) ([]string, error) {
	return m.cruises, m.err
}

func (m *mockLister) CheckReadiness(context.Context) error {
	return m.err
}

type mockStore struct {
	mu      sync.Mutex
	written map[string]products.Table
	runIDs  map[string]bool
	err     error
}

func newMockStore() *mockStore {
	return &mockStore{written: map[string]products.Table{}, runIDs: map[string]bool{}}
}

func (m *mockStore) Write(_ context.Context, runID, cruise, product string, t products.Table) (products.Sidecar, error) {
	if m.err != nil {
		return products.Sidecar{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[products.BaseName(cruise, product)] = t
	m.runIDs[runID] = true
	return products.Sidecar{Cruise: cruise, Product: product, Rows: t.Len(), Columns: t.Columns, RunID: runID}, nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []products.Sidecar
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, meta products.Sidecar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, meta)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func baseLog() []domain.Event {
	nan := math.NaN()
	return []domain.Event{
		{MessageID: "1", Timestamp: at(0), Instrument: "Bucket", Action: "sample", Latitude: nan, Longitude: nan},
		{MessageID: "2", Timestamp: at(2), Instrument: domain.InstrumentCTD, Action: domain.ActionDeploy, Station: "L1", Cast: "001", Latitude: nan, Longitude: nan},
		{MessageID: "3", Timestamp: at(4), Instrument: domain.InstrumentIncubation, Action: "start", Cast: "C1", Latitude: nan, Longitude: nan},
		{MessageID: "4", Timestamp: at(6), Instrument: "Bucket", Action: "sample", Latitude: 40.0, Longitude: -70.0},
	}
}

func testTrack() *domain.LocationIndex {
	fixes := []domain.Fix{
		{Time: at(-10), Positions: map[string]domain.LatLon{"furuno": {Lat: 41.0, Lon: -70.5}}},
		{Time: at(3), Positions: map[string]domain.LatLon{"furuno": {Lat: 41.2, Lon: -70.6}}},
	}
	return domain.NewLocationIndex(fixes, []string{"furuno"})
}

func testStations() []domain.Station {
	return []domain.Station{
		{Name: "L1", Latitude: 41.1967, Longitude: -70.8833, DepthM: math.NaN()},
		{Name: "L2", Latitude: 40.8633, Longitude: -70.8833, DepthM: 57},
	}
}

func fullSources() (*mockEvents, *mockTracks, *mockStations) {
	events := &mockEvents{
		logs:        map[string][]domain.Event{"en608": baseLog()},
		corrections: map[string][]domain.Correction{"en608": {{MessageID: "1", Timestamp: at(5)}}},
		additions:   map[string][]domain.Event{"en608": {domain.NewAddition(at(1), "Bucket", "sample", "", "late entry")}},
		samples:     map[string][]domain.DiscreteSample{"en608": {{Time: at(3), PumpType: 1, Latitude: 41.0, Longitude: -70.0}}},
		headers: map[string][]domain.CTDHeader{"en608": {
			{Cruise: "EN608", Cast: 1, Time: at(2).Add(30 * time.Second), Latitude: 41.1970, Longitude: -70.8830},
		}},
	}
	tracks := &mockTracks{tracks: map[string]*domain.LocationIndex{"en608": testTrack()}}
	stations := &mockStations{stations: map[string][]domain.Station{"en608": testStations()}}
	return events, tracks, stations
}

// --- tests ---

func TestTimelineBuilder_AllSteps(t *testing.T) {
	events, tracks, _ := fullSources()
	b := pipeline.NewTimelineBuilder(events, tracks, slog.Default(), newTestMetrics())

	tl, report, err := b.Build(context.Background(), "en608")
	require.NoError(t, err)

	for _, step := range []string{
		pipeline.StepCorrections, pipeline.StepAdditions, pipeline.StepDiscreteSamples,
		pipeline.StepCTDHeaders, pipeline.StepUnderwayBackfill,
	} {
		assert.Equal(t, pipeline.OutcomeApplied, report.Outcome(step), step)
	}
	assert.True(t, tl.IsSorted())
	assert.Equal(t, tl.Len(), report.Events)
	// the corrected event moved from minute 0 to minute 5
	assert.Equal(t, []string{"", "", "", "3", "1", "4"}, tl.MessageIDs())

	got := tl.Events()
	assert.Equal(t, "late entry", got[0].Comment)
	assert.Equal(t, 41.0, got[0].Latitude, "back-filled from the fix at or before the event")
	assert.Equal(t, domain.InstrumentCTD, got[1].Instrument)
	assert.Equal(t, "L1", got[1].Station)
	assert.Equal(t, "1", got[1].Cast)
	assert.Equal(t, domain.ActionTOIDiscrete, got[2].Action)
	assert.Equal(t, domain.InstrumentUnderwaySeawater, got[2].Instrument)
	assert.Equal(t, "1", got[3].Cast, "incubation prefix stripped")
	assert.Equal(t, 40.0, got[5].Latitude, "logged positions are kept")
}

func TestTimelineBuilder_OptionalInputsAbsent(t *testing.T) {
	events := &mockEvents{logs: map[string][]domain.Event{"ar28b": baseLog()}}
	b := pipeline.NewTimelineBuilder(events, nil, slog.Default(), newTestMetrics())

	tl, report, err := b.Build(context.Background(), "ar28b")
	require.NoError(t, err)

	assert.Empty(t, report.Failed())
	for _, s := range report.Steps {
		assert.Equal(t, pipeline.OutcomeAbsent, s.Outcome, s.Step)
	}
	assert.Equal(t, 4, tl.Len())
	assert.Equal(t, 1, tl.CountInstrument(domain.InstrumentCTD), "CTD events kept without headers")
}

func TestTimelineBuilder_FailedStepIsIsolated(t *testing.T) {
	events, tracks, _ := fullSources()
	events.errs = map[string]error{
		"en608/" + pipeline.StepCorrections: &domain.MalformedInputError{File: "en608_corrections.csv", Reason: "missing column"},
	}
	metrics := newTestMetrics()
	b := pipeline.NewTimelineBuilder(events, tracks, slog.Default(), metrics)

	tl, report, err := b.Build(context.Background(), "en608")
	require.NoError(t, err)

	require.Len(t, report.Failed(), 1)
	assert.Equal(t, pipeline.StepCorrections, report.Failed()[0].Step)
	assert.Equal(t, pipeline.OutcomeApplied, report.Outcome(pipeline.StepAdditions))
	assert.Equal(t, "1", tl.MessageIDs()[0], "uncorrected event keeps its logged time")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EnrichmentSteps.WithLabelValues(pipeline.StepCorrections, "failed")))
}

func TestTimelineBuilder_MissingBaseLog(t *testing.T) {
	b := pipeline.NewTimelineBuilder(&mockEvents{}, nil, slog.Default(), newTestMetrics())

	_, _, err := b.Build(context.Background(), "en999")

	require.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestGenerator_UnknownProduct(t *testing.T) {
	events, tracks, stations := fullSources()
	g := pipeline.NewGenerator(pipeline.Sources{Events: events, Tracks: tracks, Stations: stations}, 0, slog.Default(), newTestMetrics())

	_, err := g.Product(context.Background(), "en608", "bottles")

	require.ErrorIs(t, err, pipeline.ErrUnknownProduct)
}

func TestGenerator_CTDMetadataWithoutStations(t *testing.T) {
	events, tracks, _ := fullSources()
	g := pipeline.NewGenerator(pipeline.Sources{Events: events, Tracks: tracks, Stations: &mockStations{}}, 0, slog.Default(), newTestMetrics())

	table, err := g.Product(context.Background(), "en608", products.ProductCTDMetadata)
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, "", table.Rows[0][5])
	assert.True(t, math.IsNaN(table.Rows[0][6].(float64)))
}

func TestGenerator_CTDMetadataMatchesStation(t *testing.T) {
	events, tracks, stations := fullSources()
	g := pipeline.NewGenerator(pipeline.Sources{Events: events, Tracks: tracks, Stations: stations}, 0, slog.Default(), newTestMetrics())

	table, err := g.Product(context.Background(), "en608", products.ProductCTDMetadata)
	require.NoError(t, err)

	assert.Equal(t, "L1", table.Rows[0][5])
	assert.Less(t, table.Rows[0][6].(float64), 0.1)
}

func TestGenerator_CastStations(t *testing.T) {
	events, tracks, stations := fullSources()
	g := pipeline.NewGenerator(pipeline.Sources{Events: events, Tracks: tracks, Stations: stations}, 0, slog.Default(), newTestMetrics())

	cs, err := g.CastStations(context.Background(), "en608")
	require.NoError(t, err)

	assert.Equal(t, "L1", cs.StationFor("001"))
	assert.Equal(t, "L1", cs.StationForNumber(1))
	assert.Equal(t, "", cs.StationFor("7"))
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	events, tracks, stations := fullSources()
	store := newMockStore()
	notifier := &mockNotifier{}
	metrics := newTestMetrics()

	p := pipeline.New(&mockLister{cruises: []string{"en608"}},
		pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		store, notifier, slog.Default(), metrics, pipeline.Options{CacheSize: 4})

	report, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, report.Cruises, 1)
	assert.Len(t, report.Cruises[0].Products, len(products.All))
	assert.Len(t, store.written, len(products.All))
	assert.Len(t, notifier.sent, len(products.All))
	assert.Len(t, store.runIDs, 1)
	assert.True(t, store.runIDs[report.RunID])
	assert.True(t, p.Ready())
	assert.Zero(t, testutil.ToFloat64(metrics.PipelineRunning))
	assert.Equal(t, float64(len(products.All)), testutil.ToFloat64(metrics.NotificationsPublished.WithLabelValues("success")))
}

func TestPipeline_Run_CachesTracksAndStations(t *testing.T) {
	events, tracks, stations := fullSources()
	metrics := newTestMetrics()
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		newMockStore(), nil, slog.Default(), metrics, pipeline.Options{CacheSize: 4})

	_, err := p.Run(context.Background(), []string{"EN608"})
	require.NoError(t, err)

	assert.Equal(t, 1, tracks.calls, "timeline and underway product share one parse")
	assert.Equal(t, 1, stations.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationCache.WithLabelValues("hit")))

	// caches do not outlive a run
	_, err = p.Run(context.Background(), []string{"en608"})
	require.NoError(t, err)
	assert.Equal(t, 2, tracks.calls)
}

func TestPipeline_Run_AbsentProductsAreNotFailures(t *testing.T) {
	events := &mockEvents{logs: map[string][]domain.Event{"ar28b": baseLog()}}
	store := newMockStore()
	metrics := newTestMetrics()
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: &mockTracks{}, Stations: &mockStations{}},
		store, nil, slog.Default(), metrics, pipeline.Options{})

	report, err := p.Run(context.Background(), []string{"ar28b"})
	require.NoError(t, err)

	assert.Len(t, store.written, 1)
	for _, res := range report.Cruises[0].Products {
		if res.Product == products.ProductElog {
			assert.Equal(t, pipeline.OutcomeApplied, res.Outcome)
			continue
		}
		assert.Equal(t, pipeline.OutcomeAbsent, res.Outcome, res.Product)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProductsGenerated.WithLabelValues(products.ProductUnderway, "absent")))
}

func TestPipeline_Run_FailureIsolation(t *testing.T) {
	events, tracks, stations := fullSources()
	metrics := newTestMetrics()
	store := newMockStore()
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		store, nil, slog.Default(), metrics, pipeline.Options{Products: []string{products.ProductElog}})

	report, err := p.Run(context.Background(), []string{"en999", "en608"})

	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrDataNotFound)
	require.Len(t, report.Cruises, 2)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "en999", report.Failed()[0].Cruise)
	assert.Contains(t, store.written, "en608_elog")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CruiseFailures))
}

func TestPipeline_Run_FailFast(t *testing.T) {
	events, tracks, stations := fullSources()
	store := newMockStore()
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		store, nil, slog.Default(), newTestMetrics(), pipeline.Options{FailFast: true})

	report, err := p.Run(context.Background(), []string{"en999", "en608"})

	require.Error(t, err)
	assert.Len(t, report.Cruises, 1)
	assert.Empty(t, store.written)
}

func TestPipeline_Run_StoreErrorFailsCruise(t *testing.T) {
	events, tracks, stations := fullSources()
	store := newMockStore()
	store.err = errors.New("disk full")
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		store, nil, slog.Default(), newTestMetrics(), pipeline.Options{})

	report, err := p.Run(context.Background(), []string{"en608"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	for _, res := range report.Cruises[0].Products {
		assert.Equal(t, pipeline.OutcomeFailed, res.Outcome, res.Product)
	}
}

func TestPipeline_Run_NotifyFailureIsNotFatal(t *testing.T) {
	events, tracks, stations := fullSources()
	metrics := newTestMetrics()
	p := pipeline.New(&mockLister{}, pipeline.Sources{Events: events, Tracks: tracks, Stations: stations},
		newMockStore(), &mockNotifier{err: errors.New("broker down")}, slog.Default(), metrics,
		pipeline.Options{Products: []string{products.ProductStations}})

	_, err := p.Run(context.Background(), []string{"en608"})

	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotificationsPublished.WithLabelValues("error")))
}

func TestPipeline_Run_ListError(t *testing.T) {
	p := pipeline.New(&mockLister{err: errors.New("permission denied")}, pipeline.Sources{Events: &mockEvents{}},
		newMockStore(), nil, slog.Default(), newTestMetrics(), pipeline.Options{})

	_, err := p.Run(context.Background(), nil)

	require.ErrorContains(t, err, "listing cruises")
	assert.False(t, p.Ready())
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockLister{err: errors.New("data root missing")}, pipeline.Sources{Events: &mockEvents{}},
		newMockStore(), nil, slog.Default(), newTestMetrics(), pipeline.Options{})

	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestValidProduct(t *testing.T) {
	assert.True(t, pipeline.ValidProduct(products.ProductCTDMetadata))
	assert.False(t, pipeline.ValidProduct("bottles"))
}
