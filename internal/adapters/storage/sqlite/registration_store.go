package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

type RegistrationStore struct {
	store *Store
}

var _ ports.RegistrationStore = (*RegistrationStore)(nil)

// GetRegistration returns domain.ErrTaskNotRegistered for unknown tasks.
func (r *RegistrationStore) GetRegistration(ctx context.Context, name string) (domain.TaskRegistration, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT name, minimum_interval_seconds, stop_on_terminate, start_on_boot, registered_at
		FROM task_registrations WHERE name = ?
	`, name)

	registration, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaskRegistration{}, fmt.Errorf("%s: %w", name, domain.ErrTaskNotRegistered)
	}
	if err != nil {
		return domain.TaskRegistration{}, err
	}

	return registration, nil
}

func (r *RegistrationStore) ListRegistrations(ctx context.Context) ([]domain.TaskRegistration, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT name, minimum_interval_seconds, stop_on_terminate, start_on_boot, registered_at
		FROM task_registrations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query task registrations: %w", err)
	}
	defer rows.Close()

	var registrations []domain.TaskRegistration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task registrations: %w", err)
	}

	return registrations, nil
}

func (r *RegistrationStore) SaveRegistration(ctx context.Context, registration domain.TaskRegistration) error {
	if registration.Name == "" {
		return errors.New("task registration name is empty")
	}
	registeredAt := registration.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = r.store.now()
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO task_registrations (name, minimum_interval_seconds, stop_on_terminate, start_on_boot, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			minimum_interval_seconds = excluded.minimum_interval_seconds,
			stop_on_terminate = excluded.stop_on_terminate,
			start_on_boot = excluded.start_on_boot,
			registered_at = excluded.registered_at
	`, registration.Name,
		int64(registration.Options.MinimumInterval/time.Second),
		boolToInt(registration.Options.StopOnTerminate),
		boolToInt(registration.Options.StartOnBoot),
		formatTime(registeredAt))
	if err != nil {
		return fmt.Errorf("save task registration: %w", err)
	}

	return nil
}

// DeleteRegistration returns domain.ErrTaskNotRegistered when nothing was removed.
func (r *RegistrationStore) DeleteRegistration(ctx context.Context, name string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM task_registrations WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete task registration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task registration: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", name, domain.ErrTaskNotRegistered)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (domain.TaskRegistration, error) {
	var (
		registration    domain.TaskRegistration
		intervalSeconds int64
		stopOnTerminate int
		startOnBoot     int
		registeredAt    string
	)

	if err := row.Scan(&registration.Name, &intervalSeconds, &stopOnTerminate, &startOnBoot, &registeredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TaskRegistration{}, err
		}
		return domain.TaskRegistration{}, fmt.Errorf("scan task registration: %w", err)
	}

	registration.Options = domain.TaskOptions{
		MinimumInterval: time.Duration(intervalSeconds) * time.Second,
		StopOnTerminate: stopOnTerminate == 1,
		StartOnBoot:     startOnBoot == 1,
	}
	registration.RegisteredAt = parseTime(registeredAt)

	return registration, nil
}
