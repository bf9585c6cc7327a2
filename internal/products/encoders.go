package products

import (
	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/rawdata"
)

// Event log product columns.
var eventColumns = []string{
	"message_id", "dateTime8601", "Instrument", "Action", "Station", "Cast", "Latitude", "Longitude", "Comment",
}

// EventsTable renders a timeline in timeline order.
func EventsTable(tl domain.Timeline) Table {
	events := tl.Events()
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{
			e.MessageID, e.Timestamp, e.Instrument, e.Action, e.Station, e.Cast, e.Latitude, e.Longitude, e.Comment,
		}
	}
	return Table{Columns: eventColumns, Rows: rows}
}

// TrackTable renders an underway index as one row per fix with a
// latitude/longitude column pair per GPS model.
func TrackTable(idx *domain.LocationIndex) Table {
	models := idx.Models()
	cols := make([]string, 0, 1+2*len(models))
	cols = append(cols, rawdata.UnderwayTimeColumn)
	for _, m := range models {
		lat, lon := rawdata.GPSColumns(m)
		cols = append(cols, lat, lon)
	}

	fixes := idx.Fixes()
	rows := make([][]any, len(fixes))
	for i, f := range fixes {
		row := make([]any, 0, len(cols))
		row = append(row, f.Time)
		for _, m := range models {
			ll, ok := f.Positions[m]
			if !ok {
				ll = domain.LatLon{Lat: nan(), Lon: nan()}
			}
			row = append(row, ll.Lat, ll.Lon)
		}
		rows[i] = row
	}
	return Table{Columns: cols, Rows: rows}
}

// StationsTable renders a station list.
func StationsTable(stations []domain.Station) Table {
	rows := make([][]any, len(stations))
	for i, s := range stations {
		rows[i] = []any{s.Name, s.LongName, s.Latitude, s.Longitude, s.DepthM, s.Comment}
	}
	return Table{
		Columns:   []string{"name", "long_name", "latitude", "longitude", "depth_m", "comments"},
		Rows:      rows,
		Precision: map[string]int{"latitude": 4, "longitude": 4, "depth_m": 0},
	}
}

// CTDMetadataTable renders CTD cast headers with the nearest station to
// each cast position.
func CTDMetadataTable(headers []domain.CTDHeader, locator *domain.StationLocator) Table {
	points := make([]domain.LatLon, len(headers))
	for i, h := range headers {
		points[i] = domain.LatLon{Lat: h.Latitude, Lon: h.Longitude}
	}
	matches := locator.NearestAll(points)

	rows := make([][]any, len(headers))
	for i, h := range headers {
		rows[i] = []any{h.Cruise, h.Cast, h.Time, h.Latitude, h.Longitude, matches[i].Name, matches[i].DistanceKm}
	}
	return Table{
		Columns:   []string{"cruise", "cast", "date", "latitude", "longitude", "nearest_station", "station_distance_km"},
		Rows:      rows,
		Precision: map[string]int{"station_distance_km": 3},
	}
}
