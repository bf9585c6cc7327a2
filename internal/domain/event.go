package domain

import (
	"math"
	"time"
)

// Event log vocabulary shared by the parsers and the timeline operations.
const (
	InstrumentCTD        = "CTD911"
	InstrumentIncubation = "Incubation"

	ActionDeploy      = "deploy"
	ActionRecover     = "recover"
	ActionTOIDiscrete = "TOI discrete"

	// IncubationCastPrefix is stripped from incubation cast labels ("C12" -> "12").
	IncubationCastPrefix = "C"
)

// Event is one row of a cruise event timeline.
type Event struct {
	MessageID  string    `json:"message_id"`
	Timestamp  time.Time `json:"dateTime8601"`
	Instrument string    `json:"Instrument"`
	Action     string    `json:"Action"`
	Station    string    `json:"Station"`
	Cast       string    `json:"Cast"`
	Latitude   float64   `json:"Latitude"`  // NaN when unknown
	Longitude  float64   `json:"Longitude"` // NaN when unknown
	Comment    string    `json:"Comment"`
}

// HasLocation reports whether both coordinates are known.
func (e Event) HasLocation() bool {
	return !math.IsNaN(e.Latitude) && !math.IsNaN(e.Longitude)
}

// Correction overrides the timestamp of the base-log event sharing its MessageID.
// A zero Timestamp carries no value and leaves the original in place.
type Correction struct {
	MessageID string
	Timestamp time.Time
}

// NewAddition builds an event destined for the timeline from an additions
// sheet. Cast and position are placeholders filled by later steps.
func NewAddition(ts time.Time, instrument, action, station, comment string) Event {
	return Event{
		Timestamp:  ts.UTC(),
		Instrument: instrument,
		Action:     action,
		Station:    station,
		Latitude:   math.NaN(),
		Longitude:  math.NaN(),
		Comment:    comment,
	}
}

// CTDHeader is the per-cast metadata read from a CTD .hdr file.
type CTDHeader struct {
	Cruise    string    `json:"cruise"`
	Cast      int       `json:"cast"`
	Time      time.Time `json:"date"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// DiscreteSample is one row of a TOI underway discrete-sample log.
// PumpType is 1 for the impeller pump and 0 for the diaphragm pump. Cruise
// is the cruise named by the log file, if any.
type DiscreteSample struct {
	Cruise    string
	Time      time.Time
	PumpType  int
	Latitude  float64
	Longitude float64
}

// Station is a named reference location for a cruise.
type Station struct {
	Name      string  `json:"name"`
	LongName  string  `json:"long_name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	DepthM    float64 `json:"depth_m"` // NaN when not recorded
	Comment   string  `json:"comments,omitempty"`
}

// Fix is one underway GPS sample. Positions holds one coordinate pair per
// receiver model, keyed by model name.
type Fix struct {
	Time      time.Time
	Positions map[string]LatLon
}

// LatLon is a WGS-84 coordinate pair in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
