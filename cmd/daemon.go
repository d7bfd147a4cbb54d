package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
)

const daemonShutdownTimeout = 30 * time.Second

func newDaemonCmd(app *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if metricsAddr == "" {
				metricsAddr = app.cfg.GetString(keyDaemonMetricsAddr)
			}
			return runDaemon(cmd.Context(), app, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (e.g. 127.0.0.1:9464)")

	return cmd
}

func runDaemon(parent context.Context, app *app, metricsAddr string) error {
	log := logging.Component(app.log, logging.ComponentDaemon)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.registrar.Register(ctx); err != nil {
		log.WithError(err).Error("Failed to register background task")
		return err
	}
	if err := app.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if next, ok := app.scheduler.NextRun(domain.BackgroundFetchTaskName); ok {
		log.WithField("next_run", next.Format(time.RFC3339)).Info("Background fetch scheduled")
	}

	var server *http.Server
	serverErrs := make(chan error, 1)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			log.WithField("addr", metricsAddr).Info("Serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrs <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown requested")
	case err := <-serverErrs:
		log.WithError(err).Error("Metrics server closed")
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), daemonShutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Could not stop metrics server gracefully")
			_ = server.Close()
		}
	}
	if err := app.scheduler.Stop(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("stop scheduler: %w", err))
	}

	return runErr
}
