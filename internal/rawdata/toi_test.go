package rawdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

const testTOI = `Time (UTC)            Pump    Lat        Lon         Notes
2018-02-04 12:10:00   1       41.1000    -70.8000    ok
2018-02-04 12:20:00   0       41.2000    -70.9000    ok

`

func TestParseDiscreteSamples(t *testing.T) {
	path := writeFile(t, t.TempDir(), "En608_TOI_underwaysampletimes.txt", testTOI)

	samples, err := ParseDiscreteSamples(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.DiscreteSample{
		{Cruise: "en608", Time: time.Date(2018, 2, 4, 12, 10, 0, 0, time.UTC), PumpType: 1, Latitude: 41.1, Longitude: -70.8},
		{Cruise: "en608", Time: time.Date(2018, 2, 4, 12, 20, 0, 0, time.UTC), PumpType: 0, Latitude: 41.2, Longitude: -70.9},
	}, samples)
}

func TestParseDiscreteSamples_ShortRow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "En608_TOI_x.txt", "header\n2018-02-04 12:10:00   1\n")

	_, err := ParseDiscreteSamples(path)

	var malformed *domain.MalformedInputError
	assert.ErrorAs(t, err, &malformed)
}

func TestDiscreteLogCruise(t *testing.T) {
	assert.Equal(t, "en608", DiscreteLogCruise("/raw/en608/elog/En608_TOI_underwaysampletimes.txt"))
	assert.Empty(t, DiscreteLogCruise("toi.txt"))
}
