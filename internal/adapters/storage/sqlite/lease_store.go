package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/schoolsync/internal/ports"
)

type LeaseStore struct {
	store *Store
}

var _ ports.TaskLeases = (*LeaseStore)(nil)

// AcquireLease takes the lease on name for holder until now+ttl. It fails
// while another holder owns an unexpired lease. The current holder may
// re-acquire to extend it.
func (l *LeaseStore) AcquireLease(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	if name == "" || holder == "" {
		return false, errors.New("task lease name and holder are required")
	}

	result, err := l.store.db.ExecContext(ctx, `
		INSERT INTO task_leases (name, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE task_leases.holder = excluded.holder OR task_leases.expires_at <= ?
	`, name, holder, formatTime(now.Add(ttl)), formatTime(now))
	if err != nil {
		return false, fmt.Errorf("acquire task lease %s: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire task lease %s: %w", name, err)
	}

	return affected > 0, nil
}

// ReleaseLease is a no-op when holder no longer owns the lease.
func (l *LeaseStore) ReleaseLease(ctx context.Context, name, holder string) error {
	if _, err := l.store.db.ExecContext(ctx, `
		DELETE FROM task_leases WHERE name = ? AND holder = ?
	`, name, holder); err != nil {
		return fmt.Errorf("release task lease %s: %w", name, err)
	}
	return nil
}
