package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/pipeline"
)

// phase tracks pass/fail for one validation check of a cruise.
type phase struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// CruiseValidation is the validation result for one cruise.
type CruiseValidation struct {
	Cruise string  `json:"cruise"`
	Valid  bool    `json:"valid"`
	Events int     `json:"events"`
	Phases []phase `json:"phases"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [cruise...]",
		Short: "Check that cruise raw data can be reconciled",
		Long: `Build each cruise's event timeline without writing products and report
which inputs were applied, absent or unusable. With no arguments every
cruise under the data root is checked.

A cruise is invalid when its base event log is missing or malformed, or
when an input that exists cannot be parsed. Absent optional inputs are
reported but do not invalidate the cruise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(rootOpts *RootOptions, cruises []string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)
	e, err := setup(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if len(cruises) == 0 {
		if cruises, err = e.repo.Cruises(ctx); err != nil {
			return f.Fail(ExitCommandError, "listing cruises", err)
		}
	}

	gen := pipeline.NewGenerator(e.sources(), e.cfg.StationMatchKm, e.logger,
		observability.NewMetricsWith(prometheus.NewRegistry()))

	results := make([]CruiseValidation, 0, len(cruises))
	invalid := 0
	for _, cruise := range cruises {
		v := validateCruise(cmd, gen, e.sources(), cruise)
		if !v.Valid {
			invalid++
		}
		results = append(results, v)
	}

	if err := f.Result(results, func(w io.Writer) { printValidation(w, results) }); err != nil {
		return err
	}
	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cruise(s) invalid", invalid, len(results)))
	}
	return nil
}

func validateCruise(cmd *cobra.Command, gen *pipeline.Generator, sources pipeline.Sources, cruise string) CruiseValidation {
	ctx := cmd.Context()
	v := CruiseValidation{Cruise: cruise, Valid: true}

	tl, report, err := gen.Timeline(ctx, cruise)
	if err != nil {
		v.Valid = false
		v.Phases = append(v.Phases, phase{Name: "event_log", Outcome: string(pipeline.OutcomeFailed), Detail: err.Error()})
		return v
	}
	v.Events = tl.Len()
	v.Phases = append(v.Phases, phase{Name: "event_log", Outcome: string(pipeline.OutcomeApplied)})

	for _, s := range report.Steps {
		p := phase{Name: s.Step, Outcome: string(s.Outcome)}
		if s.Outcome == pipeline.OutcomeFailed {
			v.Valid = false
			p.Detail = s.Err.Error()
		}
		v.Phases = append(v.Phases, p)
	}

	if !tl.IsSorted() {
		v.Valid = false
		v.Phases = append(v.Phases, phase{Name: "ordering", Outcome: string(pipeline.OutcomeFailed), Detail: "timeline is not time ordered"})
	}

	p := phase{Name: "stations", Outcome: string(pipeline.OutcomeApplied)}
	if stations, err := sources.Stations.Stations(ctx, cruise); err != nil {
		p.Outcome = string(pipeline.OutcomeAbsent)
		if !domain.IsNotFound(err) || isMalformed(err) {
			p.Outcome = string(pipeline.OutcomeFailed)
			v.Valid = false
		}
		p.Detail = err.Error()
	} else {
		p.Detail = fmt.Sprintf("%d stations", len(stations))
	}
	v.Phases = append(v.Phases, p)
	return v
}

func printValidation(w io.Writer, results []CruiseValidation) {
	for _, v := range results {
		mark := "✓"
		if !v.Valid {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d events)\n", mark, v.Cruise, v.Events)
		for _, p := range v.Phases {
			if p.Detail != "" {
				fmt.Fprintf(w, "    %-18s %-8s %s\n", p.Name, p.Outcome, p.Detail)
			} else {
				fmt.Fprintf(w, "    %-18s %s\n", p.Name, p.Outcome)
			}
		}
	}
}
