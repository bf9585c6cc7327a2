package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataRoot string // overrides DATA_ROOT
	Format   string // "json" | "text"
	Verbose  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the productgen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "productgen",
		Short: "Generate cruise data products from raw event logs",
		Long: `productgen reconciles cruise event logs with their corrections, additions,
CTD casts and underway GPS track, and writes the resulting data products.

Configuration comes from the environment (DATA_ROOT, PRODUCTS_DIR,
STATION_DB_PATH, KAFKA_* ...); --data-root overrides DATA_ROOT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataRoot, "data-root", "", "raw data root (overrides DATA_ROOT)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewCruisesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStationsCommand(opts))

	return cmd
}
