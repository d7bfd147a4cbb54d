package application

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

const statusBackgroundBody = "Fetching the latest account data in the background..."

// RefreshStep is one named refresh operation run for every eligible account.
type RefreshStep struct {
	Domain domain.RefreshDomain
	Run    func(ctx context.Context, account domain.Account) error
}

// SessionSwitcher makes an account the active context before its refreshes run.
type SessionSwitcher interface {
	SwitchTo(ctx context.Context, account domain.Account) error
}

type BackgroundDeps struct {
	Accounts ports.AccountRepository
	Sessions SessionSwitcher
	Flags    ports.FlagStore
	Notifier ports.Notifier
	Steps    []RefreshStep
	// Debug shows a progress notification for the duration of each cycle.
	Debug   bool
	Logger  logrus.FieldLogger
	Metrics ports.CycleMetrics
	Clock   ports.Clock
}

// BackgroundTasks is the body of the periodic background-fetch task. It
// walks every primary account and refreshes its data, one cycle at a time.
type BackgroundTasks struct {
	accounts ports.AccountRepository
	sessions SessionSwitcher
	flags    ports.FlagStore
	notifier ports.Notifier
	steps    []RefreshStep
	debug    bool
	log      logrus.FieldLogger
	metrics  ports.CycleMetrics
	clock    ports.Clock

	guard cycleGuard
}

func NewBackgroundTasks(deps BackgroundDeps) *BackgroundTasks {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	steps := make([]RefreshStep, len(deps.Steps))
	copy(steps, deps.Steps)

	return &BackgroundTasks{
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		flags:    deps.Flags,
		notifier: deps.Notifier,
		steps:    steps,
		debug:    deps.Debug,
		log:      logging.Component(deps.Logger, logging.ComponentBackground),
		metrics:  metrics,
		clock:    clock,
	}
}

// Running reports whether a cycle is in flight.
func (b *BackgroundTasks) Running() bool {
	return b.guard.Active()
}

// Run executes one refresh cycle. It never returns an error: failures are
// logged and reported as domain.OutcomeFailed.
func (b *BackgroundTasks) Run(ctx context.Context) domain.RefreshOutcome {
	started := b.clock.Now()
	outcome := b.run(ctx)
	b.metrics.ObserveCycle(outcome, b.clock.Now().Sub(started))
	return outcome
}

func (b *BackgroundTasks) run(ctx context.Context) domain.RefreshOutcome {
	disabled, err := b.flags.Defined(ctx, domain.FlagDisableBackgroundTasks)
	if err != nil {
		b.log.WithError(err).Error("Failed to read feature flags, background fetch skipped")
		return domain.OutcomeNoData
	}
	if disabled {
		b.log.Warn("Background fetch disabled by flags")
		return domain.OutcomeNoData
	}

	if !b.guard.Begin() {
		b.log.Warn("Background fetch already running, skipping")
		return domain.OutcomeNoData
	}
	defer b.finish(ctx)

	if b.debug {
		b.showProgress(ctx)
	}

	if err := b.refreshAccounts(ctx); err != nil {
		b.log.WithError(err).Errorf("Task failed: %v", err)
		return domain.OutcomeFailed
	}

	b.log.Info("Finished background fetch")
	return domain.OutcomeNewData
}

func (b *BackgroundTasks) refreshAccounts(ctx context.Context) error {
	accounts, err := b.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	for _, account := range domain.PrimaryAccounts(accounts) {
		if err := b.sessions.SwitchTo(ctx, account); err != nil {
			return fmt.Errorf("switch to account %s: %w", account.ID, err)
		}

		if !account.NotificationsEnabled() {
			b.log.WithField("account", account.ID).Debug("Notifications disabled, account skipped")
			continue
		}

		for _, step := range b.steps {
			if err := b.runStep(ctx, step, account); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *BackgroundTasks) runStep(ctx context.Context, step RefreshStep, account domain.Account) error {
	b.log.WithField("account", account.ID).Infof("Running background %s", step.Domain.Label())

	started := b.clock.Now()
	err := step.Run(ctx, account)
	b.metrics.ObserveRefresh(step.Domain, b.clock.Now().Sub(started), err)
	if err != nil {
		return fmt.Errorf("refresh %s for account %s: %w", step.Domain, account.ID, err)
	}

	return nil
}

func (b *BackgroundTasks) showProgress(ctx context.Context) {
	err := b.notifier.Notify(ctx, domain.Notification{
		ID:       domain.StatusBackgroundNotificationID,
		Title:    "Status",
		Body:     statusBackgroundBody,
		Channel:  "Status",
		Progress: true,
	})
	if err != nil {
		b.log.WithError(err).Warn("Failed to show background status notification")
	}
}

func (b *BackgroundTasks) finish(ctx context.Context) {
	b.guard.End()

	if !b.debug {
		return
	}
	if err := b.notifier.Cancel(context.WithoutCancel(ctx), domain.StatusBackgroundNotificationID); err != nil {
		b.log.WithError(err).Warn("Failed to cancel background status notification")
	}
}
