package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports/mocks"
)

type cycleRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *cycleRecorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *cycleRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingSwitcher struct {
	recorder *cycleRecorder
	failOn   domain.AccountID
	err      error
}

func (s *recordingSwitcher) SwitchTo(_ context.Context, account domain.Account) error {
	if s.failOn != "" && account.ID == s.failOn {
		return s.err
	}
	s.recorder.add("switch:" + string(account.ID))
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	cycles   []domain.RefreshOutcome
	refreshs []domain.RefreshDomain
	failures []domain.RefreshDomain
}

func (m *recordingMetrics) ObserveCycle(outcome domain.RefreshOutcome, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, outcome)
}

func (m *recordingMetrics) ObserveRefresh(refreshDomain domain.RefreshDomain, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshs = append(m.refreshs, refreshDomain)
	if err != nil {
		m.failures = append(m.failures, refreshDomain)
	}
}

func recordingSteps(recorder *cycleRecorder, failures map[string]error) []RefreshStep {
	steps := make([]RefreshStep, 0, len(domain.RefreshDomains()))
	for _, d := range domain.RefreshDomains() {
		d := d
		steps = append(steps, RefreshStep{
			Domain: d,
			Run: func(_ context.Context, account domain.Account) error {
				event := string(d) + ":" + string(account.ID)
				recorder.add(event)
				return failures[event]
			},
		})
	}
	return steps
}

func notifyingAccount(id domain.AccountID) domain.Account {
	return domain.Account{
		ID:              id,
		Personalization: domain.Personalization{Notifications: domain.NotificationSettings{Enabled: true}},
	}
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func hasEntry(hook *test.Hook, level logrus.Level, message string) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func TestBackgroundRunSkipsWhenDisabledByFlag(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	logger, hook := newTestLogger()
	metrics := &recordingMetrics{}

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(true, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
		Logger:   logger,
		Metrics:  metrics,
	})

	assert.Equal(t, domain.OutcomeNoData, tasks.Run(context.Background()))
	assert.False(t, tasks.Running())
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Background fetch disabled by flags"))
	assert.Equal(t, "BACKGROUND", hook.LastEntry().Data["component"])
	assert.Equal(t, []domain.RefreshOutcome{domain.OutcomeNoData}, metrics.cycles)
}

func TestBackgroundRunFailsClosedWhenFlagsUnreadable(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	logger, hook := newTestLogger()

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, errors.New("flags file corrupt"))

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
		Logger:   logger,
	})

	assert.Equal(t, domain.OutcomeNoData, tasks.Run(context.Background()))
	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "Failed to read feature flags, background fetch skipped"))
}

func TestBackgroundRunSkipsWhileCycleInFlight(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	logger, hook := newTestLogger()

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
		Logger:   logger,
	})
	require.True(t, tasks.guard.Begin())

	assert.Equal(t, domain.OutcomeNoData, tasks.Run(context.Background()))
	assert.True(t, tasks.Running(), "the skipped invocation must not release the owner's guard")
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Background fetch already running, skipping"))
}

func TestBackgroundRunRefreshesPrimaryAccountsInOrder(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	recorder := &cycleRecorder{}
	logger, hook := newTestLogger()
	metrics := &recordingMetrics{}

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return([]domain.Account{
		notifyingAccount("a"),
		{ID: "b", IsExternal: true, Personalization: domain.Personalization{Notifications: domain.NotificationSettings{Enabled: true}}},
		{ID: "c"},
		notifyingAccount("d"),
	}, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: recorder},
		Flags:    flags,
		Steps:    recordingSteps(recorder, nil),
		Logger:   logger,
		Metrics:  metrics,
	})

	assert.Equal(t, domain.OutcomeNewData, tasks.Run(context.Background()))
	assert.False(t, tasks.Running())
	assert.Equal(t, []string{
		"switch:a",
		"news:a", "homework:a", "grades:a", "lessons:a", "attendance:a", "evaluation:a",
		"switch:c",
		"switch:d",
		"news:d", "homework:d", "grades:d", "lessons:d", "attendance:d", "evaluation:d",
	}, recorder.snapshot())
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Running background Homeworks"))
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Finished background fetch"))
	assert.Len(t, metrics.refreshs, 12)
	assert.Empty(t, metrics.failures)
	assert.Equal(t, []domain.RefreshOutcome{domain.OutcomeNewData}, metrics.cycles)
}

func TestBackgroundRunWithNoAccountsReportsNewData(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return(nil, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
	})

	assert.Equal(t, domain.OutcomeNewData, tasks.Run(context.Background()))
}

func TestBackgroundRunAbortsOnFirstRefreshError(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	recorder := &cycleRecorder{}
	logger, hook := newTestLogger()
	metrics := &recordingMetrics{}
	gradesErr := errors.New("grades endpoint unavailable")

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return([]domain.Account{notifyingAccount("a"), notifyingAccount("b")}, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: recorder},
		Flags:    flags,
		Steps:    recordingSteps(recorder, map[string]error{"grades:a": gradesErr}),
		Logger:   logger,
		Metrics:  metrics,
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
	assert.False(t, tasks.Running())
	assert.Equal(t, []string{"switch:a", "news:a", "homework:a", "grades:a"}, recorder.snapshot())
	assert.Equal(t, []domain.RefreshDomain{domain.RefreshGrades}, metrics.failures)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "grades endpoint unavailable")
	assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), gradesErr)
}

func TestBackgroundRunAbortSkipsRemainingAccounts(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	recorder := &cycleRecorder{}
	metrics := &recordingMetrics{}

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return([]domain.Account{
		notifyingAccount("a"),
		notifyingAccount("b"),
		notifyingAccount("c"),
	}, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: recorder},
		Flags:    flags,
		Steps:    recordingSteps(recorder, map[string]error{"grades:b": errors.New("grades endpoint unavailable")}),
		Metrics:  metrics,
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
	assert.False(t, tasks.Running())
	assert.Equal(t, []string{
		"switch:a",
		"news:a", "homework:a", "grades:a", "lessons:a", "attendance:a", "evaluation:a",
		"switch:b",
		"news:b", "homework:b", "grades:b",
	}, recorder.snapshot())
	assert.NotContains(t, recorder.snapshot(), "switch:c")
	assert.Equal(t, []domain.RefreshDomain{domain.RefreshGrades}, metrics.failures)
	assert.Equal(t, []domain.RefreshOutcome{domain.OutcomeFailed}, metrics.cycles)
}

func TestBackgroundRunFailsWhenAccountsCannotBeListed(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return(nil, errors.New("accounts file unreadable"))

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
	assert.False(t, tasks.Running())
}

func TestBackgroundRunFailsWhenSwitchFails(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	recorder := &cycleRecorder{}

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return([]domain.Account{notifyingAccount("a"), notifyingAccount("b")}, nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: recorder, failOn: "b", err: errors.New("session locked")},
		Flags:    flags,
		Steps:    recordingSteps(recorder, nil),
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
	assert.Equal(t, []string{
		"switch:a",
		"news:a", "homework:a", "grades:a", "lessons:a", "attendance:a", "evaluation:a",
	}, recorder.snapshot())
}

func TestBackgroundRunReleasesGuardAfterFailure(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil).Times(2)
	accounts.EXPECT().List(mockAnyContext()).Return(nil, errors.New("boom")).Once()
	accounts.EXPECT().List(mockAnyContext()).Return(nil, nil).Once()

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
	assert.Equal(t, domain.OutcomeNewData, tasks.Run(context.Background()))
}

func TestBackgroundRunDebugShowsAndCancelsStatusNotification(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	notifier := mocks.NewMockNotifier(t)

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return(nil, errors.New("boom"))
	notifier.EXPECT().Notify(mockAnyContext(), domain.Notification{
		ID:       domain.StatusBackgroundNotificationID,
		Title:    "Status",
		Body:     statusBackgroundBody,
		Channel:  "Status",
		Progress: true,
	}).Return(nil)
	notifier.EXPECT().Cancel(mockAnyContext(), domain.StatusBackgroundNotificationID).Return(nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
		Notifier: notifier,
		Debug:    true,
	})

	assert.Equal(t, domain.OutcomeFailed, tasks.Run(context.Background()))
}

func TestBackgroundRunDebugNotificationFailureDoesNotAbort(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	notifier := mocks.NewMockNotifier(t)
	logger, hook := newTestLogger()

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil)
	accounts.EXPECT().List(mockAnyContext()).Return(nil, nil)
	notifier.EXPECT().Notify(mockAnyContext(), mockAnyContext()).Return(errors.New("no display"))
	notifier.EXPECT().Cancel(mockAnyContext(), domain.StatusBackgroundNotificationID).Return(nil)

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: &cycleRecorder{}},
		Flags:    flags,
		Notifier: notifier,
		Debug:    true,
		Logger:   logger,
	})

	assert.Equal(t, domain.OutcomeNewData, tasks.Run(context.Background()))
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Failed to show background status notification"))
}

func TestBackgroundRunConcurrentInvocationIsSkipped(t *testing.T) {
	flags := mocks.NewMockFlagStore(t)
	accounts := mocks.NewMockAccountRepository(t)
	recorder := &cycleRecorder{}

	flags.EXPECT().Defined(mockAnyContext(), domain.FlagDisableBackgroundTasks).Return(false, nil).Times(2)
	accounts.EXPECT().List(mockAnyContext()).Return([]domain.Account{notifyingAccount("a")}, nil).Once()

	entered := make(chan struct{})
	release := make(chan struct{})
	steps := []RefreshStep{{
		Domain: domain.RefreshNews,
		Run: func(context.Context, domain.Account) error {
			close(entered)
			<-release
			return nil
		},
	}}

	tasks := NewBackgroundTasks(BackgroundDeps{
		Accounts: accounts,
		Sessions: &recordingSwitcher{recorder: recorder},
		Flags:    flags,
		Steps:    steps,
	})

	first := make(chan domain.RefreshOutcome, 1)
	go func() {
		first <- tasks.Run(context.Background())
	}()

	<-entered
	assert.Equal(t, domain.OutcomeNoData, tasks.Run(context.Background()))
	close(release)
	assert.Equal(t, domain.OutcomeNewData, <-first)
	assert.False(t, tasks.Running())
}

func TestCycleGuardBeginEnd(t *testing.T) {
	var guard cycleGuard

	require.True(t, guard.Begin())
	assert.False(t, guard.Begin())
	assert.True(t, guard.Active())

	guard.End()
	guard.End()
	assert.False(t, guard.Active())
	assert.True(t, guard.Begin())
}
