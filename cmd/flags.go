package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFlagsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Manage feature flags",
	}

	cmd.AddCommand(newFlagsListCmd(app), newFlagsSetCmd(app), newFlagsUnsetCmd(app))

	return cmd
}

func newFlagsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List defined flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags, err := app.flags.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, flag := range flags {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), flag)
			}
			return nil
		},
	}
}

func newFlagsSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Define a flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.flags.Define(cmd.Context(), args[0])
		},
	}
}

func newFlagsUnsetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <name>",
		Short: "Remove a flag from the flags file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.flags.Remove(cmd.Context(), args[0])
		},
	}
}
