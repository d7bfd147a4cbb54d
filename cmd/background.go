package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/schoolsync/internal/adapters/render/status"
	"github.com/bnema/schoolsync/internal/domain"
)

func newBackgroundCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "background",
		Short: "Manage the background-fetch task",
	}

	cmd.AddCommand(
		newBackgroundRegisterCmd(app),
		newBackgroundUnregisterCmd(app),
		newBackgroundStatusCmd(app),
		newBackgroundRunCmd(app),
		newBackgroundHistoryCmd(app),
	)

	return cmd
}

func newBackgroundRegisterCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the background-fetch task (unregisters it when disabled by flag)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.registrar.Register(cmd.Context()); err != nil {
				return err
			}

			registered, err := app.scheduler.IsRegistered(cmd.Context(), domain.BackgroundFetchTaskName)
			if err != nil {
				return err
			}
			if registered {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered %s every %s\n",
					domain.BackgroundFetchTaskName, app.registrar.Options().MinimumInterval)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is disabled by flag %s\n",
					domain.BackgroundFetchTaskName, domain.FlagDisableBackgroundTasks)
			}
			return nil
		},
	}
}

func newBackgroundUnregisterCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister",
		Short: "Unregister the background-fetch task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.registrar.Unregister(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unregistered %s\n", domain.BackgroundFetchTaskName)
			return nil
		},
	}
}

func newBackgroundStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the background-fetch registration and last run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			disabled, err := app.flags.Defined(ctx, domain.FlagDisableBackgroundTasks)
			if err != nil {
				return fmt.Errorf("read feature flags: %w", err)
			}

			_, _ = fmt.Fprintf(out, "task: %s\n", domain.BackgroundFetchTaskName)
			_, _ = fmt.Fprintf(out, "disabled by flag: %s\n", yesNo(disabled))

			registration, err := app.registrations.GetRegistration(ctx, domain.BackgroundFetchTaskName)
			switch {
			case errors.Is(err, domain.ErrTaskNotRegistered):
				_, _ = fmt.Fprintln(out, "registered: no")
			case err != nil:
				return err
			default:
				_, _ = fmt.Fprintln(out, "registered: yes")
				_, _ = fmt.Fprintf(out, "interval: %s\n", registration.Options.MinimumInterval)
				_, _ = fmt.Fprintf(out, "start on boot: %s\n", yesNo(registration.Options.StartOnBoot))
				_, _ = fmt.Fprintf(out, "stop on terminate: %s\n", yesNo(registration.Options.StopOnTerminate))
			}

			runs, err := app.runs.ListRuns(ctx, domain.BackgroundFetchTaskName, 1)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(out, "last run: never")
				return nil
			}
			last := runs[0]
			_, _ = fmt.Fprintf(out, "last run: %s %s\n", last.StartedAt.Local().Format("2006-01-02 15:04:05"), last.Outcome)
			if last.Error != "" {
				_, _ = fmt.Fprintf(out, "last error: %s\n", last.Error)
			}
			return nil
		},
	}
}

func newBackgroundRunCmd(app *app) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one background-fetch cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				outcome domain.RefreshOutcome
				err     error
			)
			if quiet {
				outcome, err = app.scheduler.RunNow(cmd.Context(), domain.BackgroundFetchTaskName)
			} else {
				outcome, err = runCycleSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context) (domain.RefreshOutcome, error) {
					return app.scheduler.RunNow(ctx, domain.BackgroundFetchTaskName)
				})
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "outcome: %s\n", outcome)
			if outcome == domain.OutcomeFailed {
				return fmt.Errorf("background fetch failed, see logs")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not show a progress spinner")

	return cmd
}

func newBackgroundHistoryCmd(app *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent background-fetch runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := app.runs.ListRuns(cmd.Context(), domain.BackgroundFetchTaskName, limit)
			if err != nil {
				return err
			}

			rendered, err := app.runsRenderer(runs, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render runs: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")

	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
