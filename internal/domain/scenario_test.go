package domain

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type scenarioRow struct {
	ID string    `yaml:"id"`
	At time.Time `yaml:"at"`
}

type timelineScenario struct {
	Name        string        `yaml:"name"`
	Base        []scenarioRow `yaml:"base"`
	Corrections []scenarioRow `yaml:"corrections"`
	Additions   []scenarioRow `yaml:"additions"`
	Want        []string      `yaml:"want"`
}

func loadScenarios(t *testing.T) []timelineScenario {
	t.Helper()
	data, err := os.ReadFile("testdata/timeline_scenarios.yaml")
	require.NoError(t, err)
	var scenarios []timelineScenario
	require.NoError(t, yaml.Unmarshal(data, &scenarios))
	require.NotEmpty(t, scenarios)
	return scenarios
}

func TestTimelineScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			base := make([]Event, len(sc.Base))
			for i, r := range sc.Base {
				base[i] = Event{MessageID: r.ID, Timestamp: r.At}
			}
			corrections := make([]Correction, len(sc.Corrections))
			for i, r := range sc.Corrections {
				corrections[i] = Correction{MessageID: r.ID, Timestamp: r.At}
			}
			// additions carry no message id; the label rides in Comment
			additions := make([]Event, len(sc.Additions))
			for i, r := range sc.Additions {
				additions[i] = NewAddition(r.At, "", "", "", r.ID)
			}

			tl := NewTimeline(base).ApplyCorrections(corrections).AddEvents(additions)

			got := make([]string, 0, tl.Len())
			for _, e := range tl.Events() {
				if e.MessageID == "" && strings.HasPrefix(e.Comment, "+") {
					got = append(got, e.Comment)
					continue
				}
				got = append(got, e.MessageID)
			}
			assert.Equal(t, sc.Want, got)
			assert.True(t, tl.IsSorted())
		})
	}
}
