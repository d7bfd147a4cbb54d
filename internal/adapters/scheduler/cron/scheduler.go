// Package cron implements the host scheduler on top of robfig/cron. Task
// registrations are persisted so a restarted daemon re-arms StartOnBoot tasks.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	robfig "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/logging"
	"github.com/bnema/schoolsync/internal/ports"
)

const (
	// MaxBackoff caps the delay after consecutive failed runs.
	MaxBackoff = 24 * time.Hour

	defaultKeepRuns     = 100
	defaultSyncInterval = 30 * time.Second
	defaultLeaseTTL     = time.Hour
)

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeepRuns sets how many run records are kept per task.
func WithKeepRuns(keep int) Option {
	return func(s *Scheduler) {
		if keep > 0 {
			s.keepRuns = keep
		}
	}
}

// WithSyncInterval sets how often a started scheduler re-reads the
// registration store to pick up changes made by other processes.
func WithSyncInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.syncInterval = interval
		}
	}
}

// WithLeases makes every run hold a lease in leases, so schedulers in
// other processes sharing the store skip while a run is in flight.
func WithLeases(leases ports.TaskLeases) Option {
	return func(s *Scheduler) {
		s.leases = leases
	}
}

type task struct {
	fn       ports.TaskFunc
	busy     atomic.Bool
	entry    robfig.EntryID
	armed    bool
	interval time.Duration
	failed   int
	blocked  time.Time
}

type Scheduler struct {
	registrations ports.RegistrationStore
	runs          ports.RunHistory
	log           logrus.FieldLogger
	now           func() time.Time
	keepRuns      int
	syncInterval  time.Duration
	leases        ports.TaskLeases
	holder        string

	mu        sync.Mutex
	cron      *robfig.Cron
	tasks     map[string]*task
	baseCtx   context.Context
	started   bool
	startedAt time.Time
	stopSync  context.CancelFunc
	syncDone  chan struct{}
}

var _ ports.HostScheduler = (*Scheduler)(nil)

func New(registrations ports.RegistrationStore, runs ports.RunHistory, logger logrus.FieldLogger, opts ...Option) *Scheduler {
	log := logging.Component(logger, logging.ComponentScheduler)
	cronLogger := robfig.PrintfLogger(log)

	s := &Scheduler{
		registrations: registrations,
		runs:          runs,
		log:           log,
		now:           time.Now,
		keepRuns:      defaultKeepRuns,
		syncInterval:  defaultSyncInterval,
		holder:        uuid.NewString(),
		tasks:         map[string]*task{},
		baseCtx:       context.Background(),
		cron: robfig.New(
			robfig.WithLogger(cronLogger),
			robfig.WithChain(robfig.Recover(cronLogger), robfig.SkipIfStillRunning(cronLogger)),
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Define binds the body invoked for name. It replaces any earlier definition.
func (s *Scheduler) Define(name string, fn ports.TaskFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		existing.fn = fn
		return
	}
	s.tasks[name] = &task{fn: fn}
}

func (s *Scheduler) IsRegistered(ctx context.Context, name string) (bool, error) {
	_, err := s.registrations.GetRegistration(ctx, name)
	if errors.Is(err, domain.ErrTaskNotRegistered) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) Register(ctx context.Context, name string, opts domain.TaskOptions) error {
	if opts.MinimumInterval <= 0 {
		return fmt.Errorf("register %s: minimum interval must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("register %s: %w", name, domain.ErrTaskNotDefined)
	}

	if err := s.registrations.SaveRegistration(ctx, domain.TaskRegistration{
		Name:         name,
		Options:      opts,
		RegisteredAt: s.now(),
	}); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	if s.started {
		if err := s.arm(name, t, opts.MinimumInterval); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	return nil
}

// Unregister returns domain.ErrTaskNotRegistered when name has no registration.
func (s *Scheduler) Unregister(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[name]; ok {
		s.disarm(t)
	}

	return s.registrations.DeleteRegistration(ctx, name)
}

// Start arms every persisted StartOnBoot registration and starts the cron
// loop. Runs triggered by the schedule inherit ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	registrations, err := s.registrations.ListRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("list task registrations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.baseCtx = ctx
	s.startedAt = s.now()

	for _, registration := range registrations {
		if !registration.Options.StartOnBoot {
			s.log.WithField("task", registration.Name).Debug("Task not started on boot")
			continue
		}
		t, ok := s.tasks[registration.Name]
		if !ok {
			s.log.WithField("task", registration.Name).Warn("Registered task has no definition, skipping")
			continue
		}
		if err := s.arm(registration.Name, t, registration.Options.MinimumInterval); err != nil {
			return fmt.Errorf("arm %s: %w", registration.Name, err)
		}
	}

	s.cron.Start()
	s.started = true

	syncCtx, cancel := context.WithCancel(ctx)
	s.stopSync = cancel
	s.syncDone = make(chan struct{})
	go s.syncLoop(syncCtx, s.syncDone)
	s.log.WithField("entries", len(s.cron.Entries())).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs and drops registrations that asked to stop on
// terminate.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	stopSync, syncDone := s.stopSync, s.syncDone
	s.stopSync, s.syncDone = nil, nil
	s.mu.Unlock()

	if stopSync != nil {
		stopSync()
		<-syncDone
	}

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	registrations, err := s.registrations.ListRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("list task registrations: %w", err)
	}

	var errs []error
	for _, registration := range registrations {
		if !registration.Options.StopOnTerminate {
			continue
		}
		if err := s.registrations.DeleteRegistration(ctx, registration.Name); err != nil && !errors.Is(err, domain.ErrTaskNotRegistered) {
			errs = append(errs, err)
			continue
		}
		s.log.WithField("task", registration.Name).Info("Task unregistered on terminate")
	}

	s.log.Info("Scheduler stopped")
	return errors.Join(errs...)
}

// RunNow fires name once outside of the schedule and ignores any failure
// backoff.
func (s *Scheduler) RunNow(ctx context.Context, name string) (domain.RefreshOutcome, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return domain.OutcomeFailed, fmt.Errorf("run %s: %w", name, domain.ErrTaskNotDefined)
	}

	outcome, err := s.execute(ctx, name, t)
	if err != nil {
		return domain.OutcomeNoData, fmt.Errorf("run %s: %w", name, err)
	}

	return outcome, nil
}

// NextRun reports when the task is next scheduled. ok is false when the task
// is not armed in this process.
func (s *Scheduler) NextRun(name string) (next time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.tasks[name]
	if !found || !t.armed {
		return time.Time{}, false
	}

	next = s.cron.Entry(t.entry).Next
	if t.blocked.After(next) {
		next = t.blocked
	}
	return next, true
}

func (s *Scheduler) syncLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("Failed to sync task registrations")
			}
		}
	}
}

// Sync reconciles the armed tasks of a started scheduler with the
// registration store. Tasks unregistered elsewhere are disarmed; tasks
// registered elsewhere after Start, or with a new interval, are (re)armed.
func (s *Scheduler) Sync(ctx context.Context) error {
	registrations, err := s.registrations.ListRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("list task registrations: %w", err)
	}

	byName := make(map[string]domain.TaskRegistration, len(registrations))
	for _, registration := range registrations {
		byName[registration.Name] = registration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	for name, t := range s.tasks {
		registration, ok := byName[name]
		switch {
		case !ok:
			if t.armed {
				s.disarm(t)
				s.log.WithField("task", name).Info("Task unregistered, disarmed")
			}
		case t.armed && t.interval == registration.Options.MinimumInterval:
		case t.armed || registration.Options.StartOnBoot || registration.RegisteredAt.After(s.startedAt):
			if err := s.arm(name, t, registration.Options.MinimumInterval); err != nil {
				return fmt.Errorf("arm %s: %w", name, err)
			}
			s.log.WithFields(logrus.Fields{"task": name, "interval": registration.Options.MinimumInterval}).Info("Task registration picked up")
		}
	}

	return nil
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(name string, t *task, interval time.Duration) error {
	s.disarm(t)

	id, err := s.cron.AddFunc("@every "+interval.String(), func() { s.fire(name, t) })
	if err != nil {
		return err
	}
	t.entry = id
	t.armed = true
	t.interval = interval

	s.log.WithFields(logrus.Fields{"task": name, "interval": interval}).Debug("Task armed")
	return nil
}

// disarm must be called with s.mu held.
func (s *Scheduler) disarm(t *task) {
	if !t.armed {
		return
	}
	s.cron.Remove(t.entry)
	t.armed = false
	t.interval = 0
}

func (s *Scheduler) fire(name string, t *task) {
	s.mu.Lock()
	ctx := s.baseCtx
	blocked := t.blocked
	s.mu.Unlock()

	// The registration may have been removed by another process since the
	// entry was armed.
	if _, err := s.registrations.GetRegistration(ctx, name); err != nil {
		if errors.Is(err, domain.ErrTaskNotRegistered) {
			s.mu.Lock()
			s.disarm(t)
			s.mu.Unlock()
			s.log.WithField("task", name).Info("Task no longer registered, disarmed")
			return
		}
		s.log.WithError(err).WithField("task", name).Warn("Failed to check task registration")
	}

	if now := s.now(); now.Before(blocked) {
		s.log.WithFields(logrus.Fields{"task": name, "until": blocked}).Debug("Task backing off after failures")
		return
	}

	if _, err := s.execute(ctx, name, t); err != nil && !errors.Is(err, domain.ErrCycleInProgress) {
		s.log.WithError(err).WithField("task", name).Error("Task run skipped")
	}
}

// execute runs the task body, records the run and updates the failure
// backoff. It reports false when the task was already running.
func (s *Scheduler) execute(ctx context.Context, name string, t *task) (domain.RefreshOutcome, error) {
	if !t.busy.CompareAndSwap(false, true) {
		s.log.WithField("task", name).Warn("Task already running, skipping")
		return domain.OutcomeNoData, domain.ErrCycleInProgress
	}
	defer t.busy.Store(false)

	if s.leases != nil {
		acquired, err := s.leases.AcquireLease(ctx, name, s.holder, s.now(), defaultLeaseTTL)
		if err != nil {
			return domain.OutcomeNoData, fmt.Errorf("acquire task lease: %w", err)
		}
		if !acquired {
			s.log.WithField("task", name).Warn("Task running in another process, skipping")
			return domain.OutcomeNoData, domain.ErrCycleInProgress
		}
		defer func() {
			if err := s.leases.ReleaseLease(context.WithoutCancel(ctx), name, s.holder); err != nil {
				s.log.WithError(err).WithField("task", name).Warn("Failed to release task lease")
			}
		}()
	}

	record := domain.RunRecord{
		ID:        uuid.NewString(),
		TaskName:  name,
		StartedAt: s.now(),
	}
	record.Outcome, record.Error = s.invoke(ctx, t.fn)
	record.EndedAt = s.now()

	s.applyBackoff(ctx, name, t, record)

	if err := s.runs.RecordRun(ctx, record); err != nil {
		s.log.WithError(err).WithField("task", name).Error("Failed to record task run")
	}
	if err := s.runs.PruneRuns(ctx, s.keepRuns); err != nil {
		s.log.WithError(err).Warn("Failed to prune task runs")
	}

	s.log.WithFields(logrus.Fields{
		"task":     name,
		"outcome":  record.Outcome,
		"duration": record.Duration(),
	}).Info("Task finished")

	return record.Outcome, nil
}

func (s *Scheduler) invoke(ctx context.Context, fn ports.TaskFunc) (outcome domain.RefreshOutcome, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.OutcomeFailed
			errMsg = fmt.Sprintf("panic: %v", r)
		}
	}()

	return fn(ctx), ""
}

func (s *Scheduler) applyBackoff(ctx context.Context, name string, t *task, record domain.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Outcome != domain.OutcomeFailed {
		t.failed = 0
		t.blocked = time.Time{}
		return
	}

	interval := domain.DefaultMinimumInterval
	if registration, err := s.registrations.GetRegistration(ctx, name); err == nil {
		interval = registration.Options.MinimumInterval
	}

	t.failed++
	delay := Backoff(interval, t.failed)
	t.blocked = record.EndedAt.Add(delay)

	s.log.WithFields(logrus.Fields{
		"task":     name,
		"failures": t.failed,
		"delay":    delay,
	}).Warn("Task failed, backing off")
}

// Backoff returns the delay before the next run after failures consecutive
// failed runs: interval * 2^(failures-1), capped at MaxBackoff.
func Backoff(interval time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return 0
	}

	delay := interval
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= MaxBackoff {
			return MaxBackoff
		}
	}
	if delay > MaxBackoff {
		return MaxBackoff
	}

	return delay
}
