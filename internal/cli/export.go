package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ceiba/internal/domain"
	"ceiba/pkg/zip"
)

type exportResult struct {
	Collection string `json:"collection"`
	Properties int    `json:"properties"`
	Jobs       int    `json:"jobs"`
	Output     string `json:"output"`
}

// NewExportCommand archives a property collection and its jobs.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Archive a collection and its jobs as a zip of JSON files",
		Long: `Writes properties.json and jobs.json with every document of the collection
and of its job collection. Output defaults to <collection>.zip.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			if output == "" {
				output = collection + ".zip"
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			props, err := s.store.Find(ctx, collection, nil, 0)
			if err != nil {
				return WrapExitError(ExitFailure, "read properties", err)
			}
			jobs, err := s.store.Find(ctx, domain.JobsCollection(collection), nil, 0)
			if err != nil {
				return WrapExitError(ExitFailure, "read jobs", err)
			}

			entries := make([]zip.Entry, 0, 2)
			for _, part := range []struct {
				name string
				docs []domain.Document
			}{{"properties.json", props}, {"jobs.json", jobs}} {
				if part.docs == nil {
					part.docs = []domain.Document{}
				}
				data, err := json.MarshalIndent(part.docs, "", "  ")
				if err != nil {
					return WrapExitError(ExitFailure, "encode "+part.name, err)
				}
				entries = append(entries, zip.Entry{Filename: part.name, Data: data})
			}
			archive, err := zip.Archive(entries, time.Now().UTC())
			if err != nil {
				return WrapExitError(ExitFailure, "build archive", err)
			}
			if err := os.WriteFile(output, archive, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "write archive", err)
			}
			s.logger.Info().Str("collection", collection).Str("output", output).Msg("collection exported")

			res := exportResult{Collection: collection, Properties: len(props), Jobs: len(jobs), Output: output}
			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "exported %d properties and %d jobs of %s to %s\n", res.Properties, res.Jobs, res.Collection, res.Output)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path")
	return cmd
}
