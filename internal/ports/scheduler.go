package ports

import (
	"context"
	"time"

	"github.com/bnema/schoolsync/internal/domain"
)

// TaskFunc is the body the host scheduler invokes on each wake-up.
type TaskFunc func(ctx context.Context) domain.RefreshOutcome

type HostScheduler interface {
	Define(name string, fn TaskFunc)
	IsRegistered(ctx context.Context, name string) (bool, error)
	Register(ctx context.Context, name string, opts domain.TaskOptions) error
	Unregister(ctx context.Context, name string) error
}

type RegistrationStore interface {
	GetRegistration(ctx context.Context, name string) (domain.TaskRegistration, error)
	ListRegistrations(ctx context.Context) ([]domain.TaskRegistration, error)
	SaveRegistration(ctx context.Context, registration domain.TaskRegistration) error
	DeleteRegistration(ctx context.Context, name string) error
}

type RunHistory interface {
	RecordRun(ctx context.Context, record domain.RunRecord) error
	ListRuns(ctx context.Context, taskName string, limit int) ([]domain.RunRecord, error)
	PruneRuns(ctx context.Context, keep int) error
}

// TaskLeases serializes task runs across processes sharing one store. A
// lease left behind by a crashed holder lapses after its ttl.
type TaskLeases interface {
	AcquireLease(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, name, holder string) error
}
