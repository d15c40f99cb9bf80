package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ceiba/internal/adapter/store"
	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the admin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "ceibactl",
		Short:         "Administer the ceiba job store",
		Long:          "Administrative tasks for the ceiba service: schema setup, user registration and collection inspection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session bundles what a command needs to talk to the configured store.
type session struct {
	cfg    *infra.Config
	logger infra.Logger
	store  domain.CollectionStore
	close  func(context.Context) error
}

func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	logger := infra.NewLogger("cli")
	if !opts.Verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}
	s, closeFn, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open %s store", cfg.StoreDriver), err)
	}
	return &session{cfg: cfg, logger: logger, store: s, close: closeFn}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.close(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("close store")
	}
}
