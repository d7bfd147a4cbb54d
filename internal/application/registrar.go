package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

// BackgroundRegistrar installs the background-fetch task with the host
// scheduler, honouring the disablebackgroundtasks kill switch.
type BackgroundRegistrar struct {
	host    ports.HostScheduler
	flags   ports.FlagStore
	options domain.TaskOptions
	log     logrus.FieldLogger
}

func NewBackgroundRegistrar(host ports.HostScheduler, flags ports.FlagStore, options domain.TaskOptions, logger logrus.FieldLogger) *BackgroundRegistrar {
	if options.MinimumInterval <= 0 {
		options.MinimumInterval = domain.DefaultMinimumInterval
	}

	return &BackgroundRegistrar{
		host:    host,
		flags:   flags,
		options: options,
		log:     logging.Component(logger, logging.ComponentBackground),
	}
}

// Register (re)installs the task. When the kill switch is set it removes
// the task instead. Only a failed registration is returned.
func (r *BackgroundRegistrar) Register(ctx context.Context) error {
	disabled, err := r.flags.Defined(ctx, domain.FlagDisableBackgroundTasks)
	if err != nil {
		return fmt.Errorf("read feature flags: %w", err)
	}
	if disabled {
		r.log.Warn("Background tasks registration skipped because disabled by flag")
		if err := r.unregister(ctx); err != nil {
			r.log.WithError(err).Error("Failed to unregister background task (flag)")
		} else {
			r.log.Info("Background task unregistered (flag)")
		}
		return nil
	}

	registered, err := r.host.IsRegistered(ctx, domain.BackgroundFetchTaskName)
	if err != nil {
		return fmt.Errorf("check background task registration: %w", err)
	}
	if registered {
		r.log.Warn("Background task already registered, unregistering first")
		if err := r.unregister(ctx); err != nil {
			r.log.WithError(err).Error("Failed to unregister background task")
		} else {
			r.log.Info("Background task unregistered")
		}
	}

	if err := r.host.Register(ctx, domain.BackgroundFetchTaskName, r.options); err != nil {
		r.log.WithError(err).Error("Failed to register background task")
		return fmt.Errorf("register background task: %w", err)
	}

	r.log.WithField("interval", r.options.MinimumInterval).Info("Background task registered")
	return nil
}

// Options returns the options the task is registered with.
func (r *BackgroundRegistrar) Options() domain.TaskOptions {
	return r.options
}

func (r *BackgroundRegistrar) Unregister(ctx context.Context) error {
	if err := r.unregister(ctx); err != nil {
		r.log.WithError(err).Error("Failed to unregister background task")
		return err
	}

	r.log.Info("Background task unregistered")
	return nil
}

func (r *BackgroundRegistrar) unregister(ctx context.Context) error {
	err := r.host.Unregister(ctx, domain.BackgroundFetchTaskName)
	if err != nil && !errors.Is(err, domain.ErrTaskNotRegistered) {
		return fmt.Errorf("unregister background task: %w", err)
	}
	return nil
}
