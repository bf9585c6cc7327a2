// Package stationdb keeps per-cruise station lists in a SQLite database so
// they can be curated once and shared between runs.
package stationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	cruise    TEXT NOT NULL,
	name      TEXT NOT NULL,
	long_name TEXT NOT NULL DEFAULT '',
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	depth_m   REAL,
	comment   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (cruise, name)
);
CREATE INDEX IF NOT EXISTS idx_stations_coords ON stations(cruise, latitude, longitude);
`

// kmPerDegree approximates one degree of latitude.
const kmPerDegree = 111.2

// Store is a station reference database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening station database: %w", err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating station schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Import replaces the station list for cruise and returns the number of
// stations stored.
func (s *Store) Import(ctx context.Context, cruise string, stations []domain.Station) (int, error) {
	cruise = strings.ToLower(cruise)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stations WHERE cruise = ?", cruise); err != nil {
		return 0, fmt.Errorf("clearing stations for %s: %w", cruise, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO stations (cruise, name, long_name, latitude, longitude, depth_m, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		depth := sql.NullFloat64{Float64: st.DepthM, Valid: !math.IsNaN(st.DepthM)}
		if _, err := stmt.ExecContext(ctx, cruise, st.Name, st.LongName, st.Latitude, st.Longitude, depth, st.Comment); err != nil {
			return 0, fmt.Errorf("inserting station %s: %w", st.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(stations), nil
}

// Stations returns the stations stored for cruise, ordered by name. A
// cruise with no stations wraps domain.ErrDataNotFound.
func (s *Store) Stations(ctx context.Context, cruise string) ([]domain.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, long_name, latitude, longitude, depth_m, comment
		FROM stations WHERE cruise = ? ORDER BY name`, strings.ToLower(cruise))
	if err != nil {
		return nil, fmt.Errorf("querying stations: %w", err)
	}
	out, err := scanStations(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("stations for %s: %w", cruise, domain.ErrDataNotFound)
	}
	return out, nil
}

// Cruises lists the cruises with stored stations.
func (s *Store) Cruises(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT cruise FROM stations ORDER BY cruise")
	if err != nil {
		return nil, fmt.Errorf("querying cruises: %w", err)
	}
	defer rows.Close()

	var cruises []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning cruise: %w", err)
		}
		cruises = append(cruises, c)
	}
	return cruises, rows.Err()
}

// Nearby is a station with its distance from a query point.
type Nearby struct {
	Station    domain.Station
	DistanceKm float64
}

// NearbyStations returns the cruise's stations within maxKm of (lat, lon),
// nearest first. A bounding box narrows the query before exact distances
// are computed.
func (s *Store) NearbyStations(ctx context.Context, cruise string, lat, lon, maxKm float64) ([]Nearby, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return nil, errors.New("position is required")
	}
	// 1.5x margin so stations near the box edge are not missed
	latDelta := maxKm / kmPerDegree * 1.5
	lonDelta := maxKm / (kmPerDegree * math.Max(math.Cos(lat*math.Pi/180), 0.01)) * 1.5

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, long_name, latitude, longitude, depth_m, comment
		FROM stations
		WHERE cruise = ?
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?`,
		strings.ToLower(cruise), lat-latDelta, lat+latDelta, lon-lonDelta, lon+lonDelta)
	if err != nil {
		return nil, fmt.Errorf("querying nearby stations: %w", err)
	}
	candidates, err := scanStations(rows)
	if err != nil {
		return nil, err
	}

	var out []Nearby
	for _, st := range candidates {
		d := domain.HaversineKm(lat, lon, st.Latitude, st.Longitude)
		if d <= maxKm {
			out = append(out, Nearby{Station: st, DistanceKm: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func scanStations(rows *sql.Rows) ([]domain.Station, error) {
	defer rows.Close()
	var out []domain.Station
	for rows.Next() {
		var (
			st    domain.Station
			depth sql.NullFloat64
		)
		if err := rows.Scan(&st.Name, &st.LongName, &st.Latitude, &st.Longitude, &depth, &st.Comment); err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		st.DepthM = math.NaN()
		if depth.Valid {
			st.DepthM = depth.Float64
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
