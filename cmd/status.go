package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/schoolsync/internal/adapters/render/status"
	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show accounts and when each domain was last refreshed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := loadStatuses(cmd, app.service, accountID)
			if err != nil {
				return err
			}
			if staleAfter <= 0 {
				staleAfter = app.cfg.GetDuration(keyStatusStaleAfter)
			}
			return writeStatusesOutput(cmd, app, statuses, staleAfter, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Only show this account")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statuses as JSON")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "Mark domains older than this as stale (defaults to status.stale_after)")

	return cmd
}

func writeStatusesOutput(cmd *cobra.Command, app *app, statuses []application.Status, staleAfter time.Duration, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{
		Now:        app.now(),
		StaleAfter: staleAfter,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func loadStatuses(cmd *cobra.Command, svc *application.Service, accountID string) ([]application.Status, error) {
	if accountID == "" {
		statuses, err := svc.GetStatusAll(cmd.Context())
		if err != nil {
			return nil, err
		}
		return statuses, nil
	}

	status, err := svc.GetStatus(cmd.Context(), domain.AccountID(accountID))
	if err != nil {
		return nil, err
	}

	return []application.Status{status}, nil
}
