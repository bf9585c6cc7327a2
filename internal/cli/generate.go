package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/cruise-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/cruise-data-etl/internal/observability"
	"github.com/couchcryptid/cruise-data-etl/internal/pipeline"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	All      bool
	Products []string
	FailFast bool
}

// GenerateResult is the JSON payload of a generate run.
type GenerateResult struct {
	RunID   string          `json:"run_id"`
	Cruises []CruiseSummary `json:"cruises"`
}

// CruiseSummary reports the products of one cruise.
type CruiseSummary struct {
	Cruise   string            `json:"cruise"`
	Products map[string]string `json:"products"` // product -> outcome
	Files    []string          `json:"files,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [cruise...]",
		Short: "Generate data products for cruises",
		Long: `Build the reconciled event timeline and the other data products for each
cruise and write them to PRODUCTS_DIR as CSV, JSON and a .meta.json sidecar.

A failing cruise does not stop the others unless --fail-fast is given.
Products whose optional inputs are absent are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "generate every cruise under the data root")
	cmd.Flags().StringSliceVar(&opts.Products, "product", nil,
		"limit to products ("+strings.Join(products.All, ", ")+")")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first failed cruise")

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *GenerateOptions, cruises []string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	if len(cruises) == 0 && !opts.All {
		return NewExitError(ExitCommandError, "name at least one cruise or pass --all")
	}
	if len(cruises) > 0 && opts.All {
		return NewExitError(ExitCommandError, "--all cannot be combined with cruise arguments")
	}
	for _, p := range opts.Products {
		if !pipeline.ValidProduct(p) {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("unknown product %q: must be one of %v", p, products.All))
		}
	}

	e, err := setup(rootOpts, cmd, f)
	if err != nil {
		return err
	}
	defer e.Close()

	var notifier pipeline.Notifier
	if e.cfg.KafkaEnabled {
		n := kafka.NewNotifier(e.cfg, e.logger)
		defer n.Close()
		notifier = n
	}

	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	p := pipeline.New(e.repo, e.sources(), e.store, notifier, e.logger, metrics, pipeline.Options{
		MatchKm:   e.cfg.StationMatchKm,
		CacheSize: e.cfg.StationCacheSize,
		FailFast:  opts.FailFast,
		Products:  opts.Products,
	})

	report, runErr := p.Run(cmd.Context(), cruises)
	if report.RunID == "" && runErr != nil {
		return f.Fail(ExitCommandError, "listing cruises", runErr)
	}

	result := summarize(report)
	if err := f.Result(result, func(w io.Writer) { printGenerate(w, result) }); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure,
			fmt.Sprintf("%d of %d cruise(s) failed", len(report.Failed()), len(report.Cruises)), runErr)
	}
	return nil
}

func summarize(report pipeline.RunReport) GenerateResult {
	out := GenerateResult{RunID: report.RunID, Cruises: []CruiseSummary{}}
	for _, c := range report.Cruises {
		s := CruiseSummary{Cruise: c.Cruise, Products: map[string]string{}}
		for _, p := range c.Products {
			s.Products[p.Product] = string(p.Outcome)
			if p.Outcome == pipeline.OutcomeApplied {
				s.Files = append(s.Files, p.Sidecar.Filename, p.Sidecar.JSONFilename)
			}
		}
		if c.Err != nil {
			s.Error = c.Err.Error()
		}
		out.Cruises = append(out.Cruises, s)
	}
	return out
}

func printGenerate(w io.Writer, result GenerateResult) {
	fmt.Fprintf(w, "run %s\n", result.RunID)
	for _, c := range result.Cruises {
		mark := "✓"
		if c.Error != "" {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, c.Cruise)
		for _, p := range products.All {
			if outcome, ok := c.Products[p]; ok {
				fmt.Fprintf(w, "    %-14s %s\n", p, outcome)
			}
		}
		if c.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", c.Error)
		}
	}
}
