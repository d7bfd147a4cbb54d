package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage school accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountNotificationsCmd(app),
		newAccountExternalCmd(app),
		newAccountSwitchCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.service.GetStatusAll(cmd.Context())
			if err != nil {
				return err
			}

			for _, status := range statuses {
				kind := "primary"
				if status.Account.IsExternal {
					kind = "external"
				}
				marker := ""
				if status.Active {
					marker = "\t*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s%s\n",
					status.Account.ID, status.Account.Name, status.Account.Service, kind, marker)
			}

			return nil
		},
	}
}

func newAccountAddCmd(app *app) *cobra.Command {
	var (
		name          string
		service       string
		external      bool
		notifications bool
		remoteUserID  string
		campus        string
	)

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add an account (empty or 0 auto-assigns the next numeric id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) == 1 {
				raw = args[0]
			}
			id, err := resolveAccountID(cmd.Context(), app, raw)
			if err != nil {
				return err
			}

			account, err := app.service.AddAccount(cmd.Context(), application.AddAccountCommand{
				ID:                   id,
				Name:                 name,
				Service:              domain.ServiceID(service),
				External:             external,
				NotificationsEnabled: notifications,
				RemoteUserID:         remoteUserID,
				Campus:               campus,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", account.ID, account.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&service, "service", string(domain.ServiceEcole42), "School service")
	cmd.Flags().BoolVar(&external, "external", false, "Linked identity, skipped by background refresh")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "Enable notifications for this account")
	cmd.Flags().StringVar(&remoteUserID, "remote-user-id", "", "User id on the school service")
	cmd.Flags().StringVar(&campus, "campus", "", "Campus name")

	return cmd
}

func newAccountNotificationsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "notifications <id> on|off",
		Short:     "Enable or disable notifications for an account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[1] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("notifications must be on or off, got %q", args[1])
			}

			return app.service.SetNotifications(cmd.Context(), domain.AccountID(args[0]), enabled)
		},
	}
}

func newAccountExternalCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "external <id> true|false",
		Short: "Mark an account as a linked identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			external, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("parse external flag: %w", err)
			}

			return app.service.SetExternal(cmd.Context(), domain.AccountID(args[0]), external)
		},
	}
}

func newAccountSwitchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <id>",
		Short: "Make an account the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.service.GetStatus(cmd.Context(), domain.AccountID(args[0]))
			if err != nil {
				return err
			}
			if err := app.sessions.SwitchTo(cmd.Context(), status.Account); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active account: %s\n", status.Account.ID)
			return nil
		},
	}
}
