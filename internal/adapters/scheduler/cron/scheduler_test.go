package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/schoolsync/internal/adapters/storage/sqlite"
	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports/mocks"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupScheduler(t *testing.T) (*Scheduler, *sqlite.Store, *fakeClock) {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger, _ := test.NewNullLogger()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	s := New(store.Registrations(), store.Runs(), logger, WithClock(clock.Now))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	return s, store, clock
}

func outcomeTask(outcome domain.RefreshOutcome, calls *int) func(context.Context) domain.RefreshOutcome {
	return func(context.Context) domain.RefreshOutcome {
		*calls++
		return outcome
	}
}

func TestRegisterRequiresDefinition(t *testing.T) {
	s, _, _ := setupScheduler(t)

	err := s.Register(context.Background(), domain.BackgroundFetchTaskName, domain.DefaultTaskOptions())
	require.ErrorIs(t, err, domain.ErrTaskNotDefined)
}

func TestRegisterRejectsNonPositiveInterval(t *testing.T) {
	s, _, _ := setupScheduler(t)
	var calls int
	s.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))

	err := s.Register(context.Background(), domain.BackgroundFetchTaskName, domain.TaskOptions{})
	require.Error(t, err)
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))

	registered, err := s.IsRegistered(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.False(t, registered)

	require.NoError(t, s.Register(ctx, domain.BackgroundFetchTaskName, domain.DefaultTaskOptions()))

	registered, err = s.IsRegistered(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.True(t, registered)

	saved, err := store.Registrations().GetRegistration(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTaskOptions(), saved.Options)

	require.NoError(t, s.Unregister(ctx, domain.BackgroundFetchTaskName))
	err = s.Unregister(ctx, domain.BackgroundFetchTaskName)
	require.ErrorIs(t, err, domain.ErrTaskNotRegistered)
}

func TestStartArmsOnlyStartOnBootRegistrations(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define("boot", outcomeTask(domain.OutcomeNoData, &calls))
	s.Define("manual", outcomeTask(domain.OutcomeNoData, &calls))

	require.NoError(t, store.Registrations().SaveRegistration(ctx, domain.TaskRegistration{
		Name:    "boot",
		Options: domain.TaskOptions{MinimumInterval: time.Hour, StartOnBoot: true},
	}))
	require.NoError(t, store.Registrations().SaveRegistration(ctx, domain.TaskRegistration{
		Name:    "manual",
		Options: domain.TaskOptions{MinimumInterval: time.Hour},
	}))

	require.NoError(t, s.Start(ctx))

	_, armed := s.NextRun("boot")
	assert.True(t, armed)
	_, armed = s.NextRun("manual")
	assert.False(t, armed)
}

func TestRegisterAfterStartArmsImmediately(t *testing.T) {
	s, _, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Register(ctx, domain.BackgroundFetchTaskName, domain.DefaultTaskOptions()))

	_, armed := s.NextRun(domain.BackgroundFetchTaskName)
	assert.True(t, armed)

	require.NoError(t, s.Unregister(ctx, domain.BackgroundFetchTaskName))
	_, armed = s.NextRun(domain.BackgroundFetchTaskName)
	assert.False(t, armed)
}

func TestStopDropsStopOnTerminateRegistrations(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define("keep", outcomeTask(domain.OutcomeNoData, &calls))
	s.Define("drop", outcomeTask(domain.OutcomeNoData, &calls))

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Register(ctx, "keep", domain.DefaultTaskOptions()))
	require.NoError(t, s.Register(ctx, "drop", domain.TaskOptions{MinimumInterval: time.Hour, StopOnTerminate: true}))

	require.NoError(t, s.Stop(ctx))

	registrations, err := store.Registrations().ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, registrations, 1)
	assert.Equal(t, "keep", registrations[0].Name)
}

func TestRunNowRecordsRun(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNewData, &calls))

	outcome, err := s.RunNow(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNewData, outcome)
	assert.Equal(t, 1, calls)

	runs, err := store.Runs().ListRuns(ctx, domain.BackgroundFetchTaskName, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.OutcomeNewData, runs[0].Outcome)
	assert.NotEmpty(t, runs[0].ID)
}

func TestRunNowUndefinedTask(t *testing.T) {
	s, _, _ := setupScheduler(t)

	_, err := s.RunNow(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrTaskNotDefined)
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	s, _, _ := setupScheduler(t)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	s.Define(domain.BackgroundFetchTaskName, func(context.Context) domain.RefreshOutcome {
		close(started)
		<-release
		return domain.OutcomeNoData
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunNow(ctx, domain.BackgroundFetchTaskName)
	}()
	<-started

	_, err := s.RunNow(ctx, domain.BackgroundFetchTaskName)
	require.ErrorIs(t, err, domain.ErrCycleInProgress)

	close(release)
	<-done
}

func TestRunNowRecoversPanics(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	s.Define(domain.BackgroundFetchTaskName, func(context.Context) domain.RefreshOutcome {
		panic("boom")
	})

	outcome, err := s.RunNow(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, outcome)

	runs, err := store.Runs().ListRuns(ctx, domain.BackgroundFetchTaskName, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "panic: boom", runs[0].Error)
}

func TestScheduledFiringBacksOffAfterFailures(t *testing.T) {
	s, _, clock := setupScheduler(t)
	ctx := context.Background()
	outcome := domain.OutcomeFailed
	var calls int
	s.Define(domain.BackgroundFetchTaskName, func(context.Context) domain.RefreshOutcome {
		calls++
		return outcome
	})
	require.NoError(t, s.Register(ctx, domain.BackgroundFetchTaskName, domain.DefaultTaskOptions()))
	task := s.tasks[domain.BackgroundFetchTaskName]

	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Minute)
	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 1, calls, "first failure blocks one interval")

	clock.Advance(15 * time.Minute)
	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 2, calls)

	clock.Advance(16 * time.Minute)
	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 2, calls, "second failure blocks two intervals")

	clock.Advance(15 * time.Minute)
	outcome = domain.OutcomeNoData
	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 3, calls)

	clock.Advance(time.Second)
	s.fire(domain.BackgroundFetchTaskName, task)
	assert.Equal(t, 4, calls, "success clears the backoff")
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{name: "no failures", failures: 0, want: 0},
		{name: "first failure", failures: 1, want: 15 * time.Minute},
		{name: "third failure", failures: 3, want: time.Hour},
		{name: "capped", failures: 12, want: MaxBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Backoff(15*time.Minute, tt.failures))
		})
	}
}

func TestSchedulerLogsWithComponent(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := New(store.Registrations(), store.Runs(), logger)
	var calls int
	s.Define("task", outcomeTask(domain.OutcomeNoData, &calls))

	_, err = s.RunNow(context.Background(), "task")
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Task finished", entry.Message)
	assert.Equal(t, "SCHEDULER", entry.Data["component"])
}

// newPeer opens a second scheduler on the same store, as a CLI process
// running next to the daemon would.
func newPeer(t *testing.T, store *sqlite.Store, clock *fakeClock, calls *int) *Scheduler {
	t.Helper()

	logger, _ := test.NewNullLogger()
	peer := New(store.Registrations(), store.Runs(), logger, WithClock(clock.Now))
	peer.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, calls))
	return peer
}

func TestFiringSkipsTaskUnregisteredByAnotherProcess(t *testing.T) {
	daemon, store, clock := setupScheduler(t)
	ctx := context.Background()
	var calls, peerCalls int
	daemon.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))
	require.NoError(t, daemon.Start(ctx))
	require.NoError(t, daemon.Register(ctx, domain.BackgroundFetchTaskName, domain.DefaultTaskOptions()))
	task := daemon.tasks[domain.BackgroundFetchTaskName]

	cli := newPeer(t, store, clock, &peerCalls)
	require.NoError(t, cli.Unregister(ctx, domain.BackgroundFetchTaskName))

	daemon.fire(domain.BackgroundFetchTaskName, task)
	daemon.fire(domain.BackgroundFetchTaskName, task)

	assert.Equal(t, 0, calls)
	_, armed := daemon.NextRun(domain.BackgroundFetchTaskName)
	assert.False(t, armed)
	assert.Empty(t, daemon.cron.Entries())

	runs, err := store.Runs().ListRuns(ctx, domain.BackgroundFetchTaskName, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSyncFollowsRegistrationsFromAnotherProcess(t *testing.T) {
	daemon, store, clock := setupScheduler(t)
	ctx := context.Background()
	var calls, peerCalls int
	daemon.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))
	require.NoError(t, daemon.Start(ctx))

	cli := newPeer(t, store, clock, &peerCalls)

	clock.Advance(time.Second)
	require.NoError(t, cli.Register(ctx, domain.BackgroundFetchTaskName, domain.TaskOptions{MinimumInterval: time.Hour}))
	require.NoError(t, daemon.Sync(ctx))
	_, armed := daemon.NextRun(domain.BackgroundFetchTaskName)
	require.True(t, armed)
	assert.Equal(t, time.Hour, daemon.tasks[domain.BackgroundFetchTaskName].interval)

	require.NoError(t, cli.Register(ctx, domain.BackgroundFetchTaskName, domain.TaskOptions{MinimumInterval: 2 * time.Hour}))
	require.NoError(t, daemon.Sync(ctx))
	assert.Equal(t, 2*time.Hour, daemon.tasks[domain.BackgroundFetchTaskName].interval)
	assert.Len(t, daemon.cron.Entries(), 1)

	require.NoError(t, cli.Unregister(ctx, domain.BackgroundFetchTaskName))
	require.NoError(t, daemon.Sync(ctx))
	_, armed = daemon.NextRun(domain.BackgroundFetchTaskName)
	assert.False(t, armed)
	assert.Empty(t, daemon.cron.Entries())
}

func TestSyncKeepsManualRegistrationsFromBeforeStartIdle(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define("manual", outcomeTask(domain.OutcomeNoData, &calls))
	require.NoError(t, store.Registrations().SaveRegistration(ctx, domain.TaskRegistration{
		Name:         "manual",
		Options:      domain.TaskOptions{MinimumInterval: time.Hour},
		RegisteredAt: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
	}))

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Sync(ctx))

	_, armed := s.NextRun("manual")
	assert.False(t, armed)
}

func TestSyncLoopRunsWhileStarted(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger, _ := test.NewNullLogger()
	daemon := New(store.Registrations(), store.Runs(), logger, WithSyncInterval(10*time.Millisecond))
	var calls int
	daemon.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))
	ctx := context.Background()
	require.NoError(t, daemon.Start(ctx))
	t.Cleanup(func() { _ = daemon.Stop(context.Background()) })

	require.NoError(t, store.Registrations().SaveRegistration(ctx, domain.TaskRegistration{
		Name:         domain.BackgroundFetchTaskName,
		Options:      domain.DefaultTaskOptions(),
		RegisteredAt: time.Now().Add(time.Second),
	}))

	assert.Eventually(t, func() bool {
		_, armed := daemon.NextRun(domain.BackgroundFetchTaskName)
		return armed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistrarRegisteringTwiceLeavesOneEntry(t *testing.T) {
	s, store, _ := setupScheduler(t)
	ctx := context.Background()
	var calls int
	s.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNoData, &calls))
	require.NoError(t, s.Start(ctx))

	flags := mocks.NewMockFlagStore(t)
	flags.EXPECT().Defined(mock.Anything, domain.FlagDisableBackgroundTasks).Return(false, nil)
	registrar := application.NewBackgroundRegistrar(s, flags, domain.DefaultTaskOptions(), nil)

	require.NoError(t, registrar.Register(ctx))
	require.NoError(t, registrar.Register(ctx))

	assert.Len(t, s.cron.Entries(), 1)
	registrations, err := store.Registrations().ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, registrations, 1)
	assert.Equal(t, domain.BackgroundFetchTaskName, registrations[0].Name)
	assert.Equal(t, domain.DefaultTaskOptions(), registrations[0].Options)
}

func TestRunNowSkipsWhileAnotherProcessRuns(t *testing.T) {
	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	daemon := New(store.Registrations(), store.Runs(), logger, WithLeases(store.Leases()))
	daemon.Define(domain.BackgroundFetchTaskName, func(context.Context) domain.RefreshOutcome {
		close(entered)
		<-release
		return domain.OutcomeNewData
	})

	var cliCalls int
	cli := New(store.Registrations(), store.Runs(), logger, WithLeases(store.Leases()))
	cli.Define(domain.BackgroundFetchTaskName, outcomeTask(domain.OutcomeNewData, &cliCalls))

	done := make(chan domain.RefreshOutcome, 1)
	go func() {
		outcome, _ := daemon.RunNow(ctx, domain.BackgroundFetchTaskName)
		done <- outcome
	}()
	<-entered

	_, err = cli.RunNow(ctx, domain.BackgroundFetchTaskName)
	require.ErrorIs(t, err, domain.ErrCycleInProgress)
	assert.Equal(t, 0, cliCalls)

	close(release)
	assert.Equal(t, domain.OutcomeNewData, <-done)

	outcome, err := cli.RunNow(ctx, domain.BackgroundFetchTaskName)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNewData, outcome)
	assert.Equal(t, 1, cliCalls)

	runs, err := store.Runs().ListRuns(ctx, domain.BackgroundFetchTaskName, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
