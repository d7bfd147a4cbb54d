package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

type RunHistory struct {
	store *Store
}

var _ ports.RunHistory = (*RunHistory)(nil)

// RecordRun stores one task execution. Records without an ID get a fresh one.
func (h *RunHistory) RecordRun(ctx context.Context, record domain.RunRecord) error {
	if record.TaskName == "" {
		return errors.New("run record task name is empty")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	_, err := h.store.db.ExecContext(ctx, `
		INSERT INTO task_runs (id, task_name, started_at, ended_at, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.TaskName,
		formatTime(record.StartedAt), formatTime(record.EndedAt),
		record.Outcome.String(), nullString(record.Error))
	if err != nil {
		return fmt.Errorf("record task run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs first. An empty taskName lists every task.
func (h *RunHistory) ListRuns(ctx context.Context, taskName string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.store.db.QueryContext(ctx, `
		SELECT id, task_name, started_at, ended_at, outcome, error
		FROM task_runs
		WHERE ? = '' OR task_name = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, taskName, taskName, limit)
	if err != nil {
		return nil, fmt.Errorf("query task runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var (
			record             domain.RunRecord
			startedAt, endedAt string
			outcome            string
			errMsg             sql.NullString
		)
		if err := rows.Scan(&record.ID, &record.TaskName, &startedAt, &endedAt, &outcome, &errMsg); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}

		record.StartedAt = parseTime(startedAt)
		record.EndedAt = parseTime(endedAt)
		record.Outcome, err = domain.ParseRefreshOutcome(outcome)
		if err != nil {
			return nil, fmt.Errorf("scan task run %s: %w", record.ID, err)
		}
		if errMsg.Valid {
			record.Error = errMsg.String
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task runs: %w", err)
	}

	return records, nil
}

// PruneRuns keeps the most recent keep runs per task.
func (h *RunHistory) PruneRuns(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}

	_, err := h.store.db.ExecContext(ctx, `
		DELETE FROM task_runs
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_name ORDER BY started_at DESC) AS rn
				FROM task_runs
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("prune task runs: %w", err)
	}

	return nil
}
