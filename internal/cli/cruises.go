package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewCruisesCommand creates the cruises command.
func NewCruisesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cruises",
		Short: "List cruises with raw data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			e, err := setup(rootOpts, cmd, f)
			if err != nil {
				return err
			}
			defer e.Close()

			cruises, err := e.repo.Cruises(cmd.Context())
			if err != nil {
				return f.Fail(ExitCommandError, "listing cruises", err)
			}
			if cruises == nil {
				cruises = []string{}
			}
			return f.Result(map[string]any{"cruises": cruises}, func(w io.Writer) {
				for _, c := range cruises {
					fmt.Fprintln(w, c)
				}
			})
		},
	}
}
