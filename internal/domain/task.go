package domain

import "time"

const (
	BackgroundFetchTaskName = "background-fetch"

	DefaultMinimumInterval = 15 * time.Minute

	FlagDisableBackgroundTasks = "disablebackgroundtasks"
)

type TaskOptions struct {
	MinimumInterval time.Duration
	StopOnTerminate bool
	StartOnBoot     bool
}

func DefaultTaskOptions() TaskOptions {
	return TaskOptions{
		MinimumInterval: DefaultMinimumInterval,
		StopOnTerminate: false,
		StartOnBoot:     true,
	}
}

type TaskRegistration struct {
	Name         string
	Options      TaskOptions
	RegisteredAt time.Time
}

type RunRecord struct {
	ID        string
	TaskName  string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   RefreshOutcome
	Error     string
}

func (r RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
