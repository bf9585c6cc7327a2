package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Timeline is an immutable, time-ordered list of cruise events. Every
// operation returns a new Timeline and leaves the receiver untouched.
type Timeline struct {
	events []Event
}

// NewTimeline copies events and sorts them by timestamp. Events sharing a
// timestamp keep their relative input order.
func NewTimeline(events []Event) Timeline {
	out := slices.Clone(events)
	sortEvents(out)
	return Timeline{events: out}
}

// Events returns a copy of the ordered events.
func (t Timeline) Events() []Event {
	return slices.Clone(t.events)
}

// Len returns the number of events.
func (t Timeline) Len() int {
	return len(t.events)
}

// CountInstrument returns how many events carry the given instrument label.
func (t Timeline) CountInstrument(instrument string) int {
	n := 0
	for _, e := range t.events {
		if e.Instrument == instrument {
			n++
		}
	}
	return n
}

// MessageIDs returns the message ids in timeline order; synthetic rows
// contribute "".
func (t Timeline) MessageIDs() []string {
	ids := make([]string, len(t.events))
	for i, e := range t.events {
		ids[i] = e.MessageID
	}
	return ids
}

// ApplyCorrections overrides event timestamps by message id. A correction
// wins when it carries a timestamp; unmatched corrections have no effect.
// Only Timestamp is ever changed.
func (t Timeline) ApplyCorrections(corrections []Correction) Timeline {
	byID := make(map[string]time.Time, len(corrections))
	for _, c := range corrections {
		id := strings.TrimSpace(c.MessageID)
		if id == "" || c.Timestamp.IsZero() {
			continue
		}
		byID[id] = c.Timestamp.UTC()
	}
	out := slices.Clone(t.events)
	for i := range out {
		if out[i].MessageID == "" {
			continue
		}
		if ts, ok := byID[out[i].MessageID]; ok {
			out[i].Timestamp = ts
		}
	}
	sortEvents(out)
	return Timeline{events: out}
}

// AddEvents appends events without checking for message id collisions.
func (t Timeline) AddEvents(events []Event) Timeline {
	out := make([]Event, 0, len(t.events)+len(events))
	out = append(out, t.events...)
	out = append(out, events...)
	sortEvents(out)
	return Timeline{events: out}
}

// RemoveWhere drops every event matching the predicate.
func (t Timeline) RemoveWhere(match func(Event) bool) Timeline {
	out := make([]Event, 0, len(t.events))
	for _, e := range t.events {
		if !match(e) {
			out = append(out, e)
		}
	}
	return Timeline{events: out}
}

// ReplaceAction removes every event tagged with action and adds the
// replacements.
func (t Timeline) ReplaceAction(action string, replacements []Event) Timeline {
	return t.RemoveWhere(func(e Event) bool { return e.Action == action }).AddEvents(replacements)
}

// ReplaceCTDEvents rebuilds the CTD portion of the timeline from cast
// headers. Recoveries and then every remaining CTD event are removed, and
// one deploy event per header is inserted. Stations come from stations; a
// comment logged on a non-recovery CTD event of the same cast is carried
// over.
func (t Timeline) ReplaceCTDEvents(headers []CTDHeader, stations *CastStations) Timeline {
	noRecoveries := t.RemoveWhere(func(e Event) bool {
		return e.Instrument == InstrumentCTD && e.Action == ActionRecover
	})

	comments := make(map[int]string)
	for _, e := range noRecoveries.events {
		if e.Instrument != InstrumentCTD || e.Comment == "" {
			continue
		}
		n, ok := CastNumber(e.Cast)
		if !ok {
			continue
		}
		if _, seen := comments[n]; !seen {
			comments[n] = e.Comment
		}
	}

	trimmed := noRecoveries.RemoveWhere(func(e Event) bool {
		return e.Instrument == InstrumentCTD
	})

	deploys := make([]Event, 0, len(headers))
	for _, h := range headers {
		deploys = append(deploys, Event{
			Timestamp:  h.Time.UTC(),
			Instrument: InstrumentCTD,
			Action:     ActionDeploy,
			Station:    stations.StationForNumber(h.Cast),
			Cast:       strconv.Itoa(h.Cast),
			Latitude:   h.Latitude,
			Longitude:  h.Longitude,
			Comment:    comments[h.Cast],
		})
	}
	return trimmed.AddEvents(deploys)
}

// FillLocations sets missing coordinates from locate. The first lookup
// error stops the fill and is returned with the unchanged timeline.
func (t Timeline) FillLocations(locate func(time.Time) (LatLon, error)) (Timeline, error) {
	out := slices.Clone(t.events)
	for i := range out {
		if out[i].HasLocation() {
			continue
		}
		ll, err := locate(out[i].Timestamp)
		if err != nil {
			return t, err
		}
		out[i].Latitude = ll.Lat
		out[i].Longitude = ll.Lon
	}
	return Timeline{events: out}, nil
}

// NormalizeCasts strips prefix from non-empty cast labels of instrument and
// rewrites them as plain integers. Labels that are not numeric after the
// prefix is removed are kept as they are.
func (t Timeline) NormalizeCasts(instrument, prefix string) Timeline {
	out := slices.Clone(t.events)
	for i := range out {
		if out[i].Instrument != instrument {
			continue
		}
		label := strings.TrimSpace(out[i].Cast)
		if label == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(label, prefix))
		if err != nil {
			continue
		}
		out[i].Cast = strconv.Itoa(n)
	}
	return Timeline{events: out}
}

// Sorted returns the timeline re-sorted by timestamp.
func (t Timeline) Sorted() Timeline {
	return NewTimeline(t.events)
}

// IsSorted reports whether timestamps are non-decreasing.
func (t Timeline) IsSorted() bool {
	return slices.IsSortedFunc(t.events, compareEvents)
}

func sortEvents(events []Event) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b Event) int {
	return a.Timestamp.Compare(b.Timestamp)
}
