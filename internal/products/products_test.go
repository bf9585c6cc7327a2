package products

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

var testTime = time.Date(2018, 2, 4, 12, 0, 0, 0, time.UTC)

func testTimeline() domain.Timeline {
	return domain.NewTimeline([]domain.Event{
		{
			Timestamp: testTime.Add(5*time.Minute + 30*time.Second), Instrument: domain.InstrumentIncubation,
			Action: "start", Cast: "1", Latitude: math.NaN(), Longitude: math.NaN(),
		},
		{
			MessageID: "m1", Timestamp: testTime, Instrument: domain.InstrumentCTD, Action: domain.ActionDeploy,
			Station: "L1", Cast: "1", Latitude: 41.19217, Longitude: -70.88333, Comment: "bottle 3, misfired",
		},
	})
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEventsTable_CSVGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, EventsTable(testTimeline())))

	newGoldie(t).Assert(t, "events", buf.Bytes())
}

func TestCTDMetadataTable_CSVGolden(t *testing.T) {
	locator := domain.NewStationLocator([]domain.Station{
		{Name: "L1", Latitude: 41.1967, Longitude: -70.8833},
		{Name: "L2", Latitude: 41.0317, Longitude: -70.8833},
	}, 0)
	headers := []domain.CTDHeader{
		{Cruise: "EN608", Cast: 1, Time: time.Date(2018, 2, 4, 14, 37, 8, 0, time.UTC), Latitude: 41.1967, Longitude: -70.8833},
		{Cruise: "EN608", Cast: 2, Time: time.Date(2018, 2, 4, 18, 0, 0, 0, time.UTC), Latitude: 39, Longitude: -72},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, CTDMetadataTable(headers, locator)))

	newGoldie(t).Assert(t, "ctd_metadata", buf.Bytes())
}

func TestEventsTable_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, EventsTable(testTimeline())))

	assert.JSONEq(t, `[
		{"message_id":"m1","dateTime8601":"2018-02-04T12:00:00Z","Instrument":"CTD911","Action":"deploy",
		 "Station":"L1","Cast":"1","Latitude":41.19217,"Longitude":-70.88333,"Comment":"bottle 3, misfired"},
		{"message_id":"","dateTime8601":"2018-02-04T12:05:30Z","Instrument":"Incubation","Action":"start",
		 "Station":"","Cast":"1","Latitude":null,"Longitude":null,"Comment":""}
	]`, buf.String())
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Table{Columns: []string{"a"}}))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestTrackTable(t *testing.T) {
	idx := domain.NewLocationIndex([]domain.Fix{
		{Time: testTime, Positions: map[string]domain.LatLon{"furuno": {Lat: 41, Lon: -70}, "garmin": {Lat: 41.1, Lon: -70.1}}},
		{Time: testTime.Add(time.Minute), Positions: map[string]domain.LatLon{"furuno": {Lat: 41.2, Lon: -70.2}}},
	}, []string{"furuno", "garmin"})

	tbl := TrackTable(idx)

	assert.Equal(t, []string{
		"datetime_iso8601", "gps_furuno_latitude", "gps_furuno_longitude", "gps_garmin_latitude", "gps_garmin_longitude",
	}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.True(t, math.IsNaN(tbl.Rows[1][3].(float64)))
}

func TestStationsTable(t *testing.T) {
	tbl := StationsTable([]domain.Station{{Name: "MVCO", Latitude: 41.325, Longitude: -70.5667, DepthM: 15}})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "name,long_name,latitude,longitude,depth_m,comments\nMVCO,,41.3250,-70.5667,15,\n", buf.String())
}

func TestStore_WriteAndOpen(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	dir := t.TempDir()
	store := NewStore(dir)

	meta, err := store.Write(context.Background(), "run-1", "EN608", ProductElog, EventsTable(testTimeline()))
	require.NoError(t, err)

	assert.Equal(t, "en608_elog.csv", meta.Filename)
	assert.Equal(t, "en608_elog.json", meta.JSONFilename)
	assert.Equal(t, 2, meta.Rows)
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, fake.Now(), meta.GeneratedAt)

	for _, name := range []string{"en608_elog.csv", "en608_elog.json", "en608_elog.meta.json"} {
		assert.FileExists(t, filepath.Join(dir, "en608", name))
	}

	f, err := store.Open("en608", ProductElog, "csv")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bottle 3, misfired")

	stored, err := store.Sidecar("en608", ProductElog)
	require.NoError(t, err)
	assert.Equal(t, meta, stored)

	raw, err := os.ReadFile(filepath.Join(dir, "en608", "en608_elog.meta.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["generated_at"])
}

func TestStore_WriteGeneratesRunID(t *testing.T) {
	meta, err := NewStore(t.TempDir()).Write(context.Background(), "", "en608", ProductStations, StationsTable(nil))
	require.NoError(t, err)
	assert.Len(t, meta.RunID, 36)
	assert.Zero(t, meta.Rows)
}

func TestStore_OpenMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Open("en608", ProductElog, "csv")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)

	_, err = store.Open("en608", ProductElog, "xml")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func TestStore_RejectsPathLikeCruise(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "products"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "x_elog.csv"), []byte("outside"), 0o644))

	_, err := store.Open("../x", ProductElog, "csv")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)

	_, err = store.Write(context.Background(), "", "../x", ProductElog, EventsTable(testTimeline()))
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
	assert.NoFileExists(t, filepath.Join(root, "x", "x_elog.csv"))
}
