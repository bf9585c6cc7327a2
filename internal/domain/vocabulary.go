package domain

import "strings"

// Instrument labels used for TOI discrete samples.
const (
	PumpImpeller  = "impeller pump"
	PumpDiaphragm = "diaphragm pump"

	InstrumentUnderwaySeawater          = "Underway Science seawater"
	InstrumentUnderwaySeawaterImpeller  = "Underway Science seawater impeller"
	InstrumentUnderwaySeawaterDiaphragm = "Underway Science seawater diaphragm pump"
)

// pumpLabeler assigns instrument and comment labels to a pump type code.
type pumpLabeler func(pumpType int) (instrument, comment string)

// discreteVocabulary holds the cruises whose TOI logs need special labels.
//
//   - en608 logged every sample as underway seawater; the pump goes in the comment.
//   - en617 logged the two pumps as separate instruments.
var discreteVocabulary = map[string]pumpLabeler{
	"en608": func(pumpType int) (string, string) {
		return InstrumentUnderwaySeawater, pumpName(pumpType)
	},
	"en617": func(pumpType int) (string, string) {
		switch pumpType {
		case 1:
			return InstrumentUnderwaySeawaterImpeller, ""
		case 0:
			return InstrumentUnderwaySeawaterDiaphragm, ""
		default:
			return "", ""
		}
	},
}

func pumpName(pumpType int) string {
	switch pumpType {
	case 1:
		return PumpImpeller
	case 0:
		return PumpDiaphragm
	default:
		return ""
	}
}

// DiscreteSampleEvents converts TOI discrete samples into timeline events.
// Labels follow the sample's own cruise, falling back to cruise. Cruises
// outside the vocabulary table get no instrument or comment labels. Station
// and cast do not apply.
func DiscreteSampleEvents(cruise string, samples []DiscreteSample) []Event {
	events := make([]Event, 0, len(samples))
	for _, s := range samples {
		key := s.Cruise
		if key == "" {
			key = cruise
		}
		label := discreteVocabulary[strings.ToLower(key)]
		var instrument, comment string
		if label != nil {
			instrument, comment = label(s.PumpType)
		}
		events = append(events, Event{
			Timestamp:  s.Time.UTC(),
			Instrument: instrument,
			Action:     ActionTOIDiscrete,
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			Comment:    comment,
		})
	}
	return events
}
