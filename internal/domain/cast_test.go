package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCastNumber(t *testing.T) {
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"004", 4, true},
		{"4", 4, true},
		{" 12 ", 12, true},
		{"C12", 12, true},
		{"cast7", 7, true},
		{"", 0, false},
		{"C", 0, false},
		{"12a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := CastNumber(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCastStations_ZeroPaddedLog(t *testing.T) {
	cs := NewCastStations([]Event{
		{Instrument: InstrumentCTD, Cast: "004", Station: "L4"},
		{Instrument: InstrumentCTD, Cast: "004", Station: "ignored"},
		{Instrument: InstrumentCTD, Cast: "010", Station: "L10"},
		{Instrument: "Bucket", Cast: "005", Station: "not a ctd"},
	})

	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, "L4", cs.StationFor("004"))
	assert.Equal(t, "L4", cs.StationFor("4"))
	assert.Equal(t, "L4", cs.StationForNumber(4))
	assert.Equal(t, "L10", cs.StationForNumber(10))
	assert.Empty(t, cs.StationFor("005"))
	assert.Empty(t, cs.StationFor(""))
}

func TestCastStations_UnpaddedLog(t *testing.T) {
	cs := NewCastStations([]Event{
		{Instrument: InstrumentCTD, Cast: "4", Station: "MVCO"},
	})

	assert.Equal(t, "MVCO", cs.StationFor("004"))
	assert.Equal(t, "MVCO", cs.StationFor("4"))
	assert.Equal(t, "MVCO", cs.StationForNumber(4))
}

func TestCastStations_NilIsEmpty(t *testing.T) {
	var cs *CastStations
	assert.Zero(t, cs.Len())
	assert.Empty(t, cs.StationForNumber(1))
}
