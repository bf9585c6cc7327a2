package pipeline

import (
	"errors"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Optional timeline construction steps.
const (
	StepCorrections      = "corrections"
	StepAdditions        = "additions"
	StepDiscreteSamples  = "toi_discrete"
	StepCTDHeaders       = "ctd_headers"
	StepUnderwayBackfill = "underway_backfill"
)

// Outcome is how an optional step ended.
type Outcome string

const (
	// OutcomeApplied means the step ran and changed or confirmed the timeline.
	OutcomeApplied Outcome = "applied"
	// OutcomeAbsent means the step's input does not exist for the cruise.
	OutcomeAbsent Outcome = "absent"
	// OutcomeFailed means the input exists but could not be used.
	OutcomeFailed Outcome = "failed"
)

// StepResult records one optional step of a timeline build.
type StepResult struct {
	Step    string
	Outcome Outcome
	Err     error
}

// BuildReport summarises a timeline build.
type BuildReport struct {
	Cruise string
	Events int
	Steps  []StepResult
}

// Failed returns the steps that failed.
func (r BuildReport) Failed() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			out = append(out, s)
		}
	}
	return out
}

// Outcome returns the outcome of a step, or "" if it was not recorded.
func (r BuildReport) Outcome(step string) Outcome {
	for _, s := range r.Steps {
		if s.Step == step {
			return s.Outcome
		}
	}
	return ""
}

// classify maps a step error to its outcome. Missing inputs and vessels
// without an underway format are absent; anything else failed.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeApplied
	case errors.Is(err, domain.ErrDataNotFound), errors.Is(err, domain.ErrUnsupportedVessel):
		return OutcomeAbsent
	default:
		return OutcomeFailed
	}
}
