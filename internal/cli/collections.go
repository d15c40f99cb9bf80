package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ceiba/internal/jobs"
)

// NewCollectionsCommand prints the property collections and their sizes.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List property collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			items, err := jobs.NewQueries(s.store, s.logger).Collections(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "list collections", err)
			}
			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(items, func(w io.Writer) error {
				for _, c := range items {
					if _, err := fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Size); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
