package rawdata

import (
	"fmt"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Cleaned event log column names.
const (
	colMessageID  = "message_id"
	colDateTime   = "datetime8601"
	colInstrument = "instrument"
	colAction     = "action"
	colStation    = "station"
	colCast       = "cast"
	colLatitude   = "latitude"
	colLongitude  = "longitude"
	colComment    = "comment"
)

// ParseEventLog reads a base event log CSV. message_id is optional for
// legacy logs but must be unique when present.
func ParseEventLog(path string) ([]domain.Event, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(colDateTime, colInstrument, colAction); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, t.Len())
	seen := make(map[string]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, err := parseTimestamp(t.Value(i, colDateTime))
		if err != nil {
			return nil, rowError(path, i, err)
		}
		lat, err := parseFloatOrNaN(t.Value(i, colLatitude))
		if err != nil {
			return nil, rowError(path, i, err)
		}
		lon, err := parseFloatOrNaN(t.Value(i, colLongitude))
		if err != nil {
			return nil, rowError(path, i, err)
		}
		id := t.Value(i, colMessageID)
		if id != "" {
			if prev, dup := seen[id]; dup {
				return nil, &domain.MalformedInputError{
					File:    path,
					Columns: []string{colMessageID},
					Reason:  fmt.Sprintf("duplicate message_id %q in rows %d and %d", id, prev+2, i+2),
				}
			}
			seen[id] = i
		}
		events = append(events, domain.Event{
			MessageID:  id,
			Timestamp:  ts,
			Instrument: t.Value(i, colInstrument),
			Action:     t.Value(i, colAction),
			Station:    t.Value(i, colStation),
			Cast:       t.Value(i, colCast),
			Latitude:   lat,
			Longitude:  lon,
			Comment:    t.Value(i, colComment),
		})
	}
	return events, nil
}

// ParseCorrections reads a corrections sheet keyed by message_id. Blank
// timestamps produce a Correction with a zero Timestamp.
func ParseCorrections(path string) ([]domain.Correction, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(colMessageID, colDateTime); err != nil {
		return nil, err
	}

	out := make([]domain.Correction, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		c := domain.Correction{MessageID: t.Value(i, colMessageID)}
		if raw := t.Value(i, colDateTime); raw != "" {
			ts, err := parseTimestamp(raw)
			if err != nil {
				return nil, rowError(path, i, err)
			}
			c.Timestamp = ts
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseAdditions reads an additions sheet. Timestamps must be ISO-8601.
func ParseAdditions(path string) ([]domain.Event, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(colDateTime, colInstrument, colAction); err != nil {
		return nil, err
	}

	out := make([]domain.Event, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		ts, err := parseISO8601(t.Value(i, colDateTime))
		if err != nil {
			return nil, rowError(path, i, err)
		}
		out = append(out, domain.NewAddition(ts,
			t.Value(i, colInstrument),
			t.Value(i, colAction),
			t.Value(i, colStation),
			t.Value(i, colComment),
		))
	}
	return out, nil
}

// rowError reports a bad cell using the 1-based file line (header is line 1).
func rowError(path string, row int, err error) error {
	return &domain.MalformedInputError{File: path, Reason: fmt.Sprintf("line %d: %v", row+2, err)}
}
