package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ceiba/internal/auth"
	"ceiba/internal/domain"
)

// NewUsersCommand groups the user registry commands.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the users allowed to report results",
	}
	cmd.AddCommand(newUsersImportCommand(rootOpts))
	cmd.AddCommand(newUsersListCommand(rootOpts))
	return cmd
}

type importResult struct {
	Requested int `json:"requested"`
	Added     int `json:"added"`
}

func newUsersImportCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import [login...]",
		Short: "Register GitHub logins",
		Long: `Registers the logins given as arguments and those listed in a YAML file:

  users:
    - octocat
    - hubot

Logins that are already registered keep their current session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logins := append([]string(nil), args...)
			if file != "" {
				fromFile, err := auth.LoadUsersFile(file)
				if err != nil {
					return WrapExitError(ExitCommandError, "read users file", err)
				}
				logins = append(logins, fromFile...)
			}
			if len(logins) == 0 {
				return WrapExitError(ExitCommandError, "no logins given", nil)
			}

			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			added, err := auth.NewUsers(s.store, s.logger).Import(ctx, logins)
			if err != nil {
				return WrapExitError(ExitFailure, "import users", err)
			}
			res := importResult{Requested: len(logins), Added: added}
			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "registered %d of %d users\n", res.Added, res.Requested)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file listing logins")
	return cmd
}

type userView struct {
	Username string `json:"username"`
	Session  bool   `json:"session"`
	Issued   string `json:"issued,omitempty"`
}

func newUsersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			users, err := auth.NewUsers(s.store, s.logger).List(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "list users", err)
			}
			views := make([]userView, 0, len(users))
			for _, u := range users {
				views = append(views, newUserView(u))
			}
			return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout()).Print(views, func(w io.Writer) error {
				for _, v := range views {
					state := "no session"
					if v.Session {
						state = "session issued " + v.Issued
					}
					if _, err := fmt.Fprintf(w, "%s\t%s\n", v.Username, state); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUserView(u domain.User) userView {
	v := userView{Username: u.Username, Session: u.HasSession()}
	if u.Time != nil {
		v.Issued = u.Time.UTC().Format("2006-01-02T15:04:05Z")
	}
	return v
}
