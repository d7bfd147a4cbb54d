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

type SnapshotStore struct {
	store *Store
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

func (s *SnapshotStore) ReplaceSnapshot(ctx context.Context, accountID domain.AccountID, refreshDomain domain.RefreshDomain, items []domain.SnapshotItem) (added []domain.SnapshotItem, hadPrevious bool, err error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var fetchedAt string
	switch err = tx.QueryRowContext(ctx,
		"SELECT fetched_at FROM refresh_state WHERE account_id = ? AND domain = ?",
		string(accountID), string(refreshDomain)).Scan(&fetchedAt); {
	case err == nil:
		hadPrevious = true
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	default:
		return nil, false, fmt.Errorf("read refresh state: %w", err)
	}

	known, err := knownItemIDs(ctx, tx, accountID, refreshDomain)
	if err != nil {
		return nil, false, err
	}

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM refresh_snapshots WHERE account_id = ? AND domain = ?",
		string(accountID), string(refreshDomain)); err != nil {
		return nil, false, fmt.Errorf("clear snapshot: %w", err)
	}

	now := formatTime(s.store.now())
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			err = fmt.Errorf("%s snapshot item without id", refreshDomain)
			return nil, false, err
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO refresh_snapshots (account_id, domain, item_id, title, body, at, payload, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, string(accountID), string(refreshDomain), item.ID, item.Title, item.Body,
			formatNullableTime(item.At), item.Payload, now); err != nil {
			return nil, false, fmt.Errorf("insert snapshot item %s: %w", item.ID, err)
		}

		if _, ok := known[item.ID]; !ok {
			added = append(added, item)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_state (account_id, domain, fetched_at, item_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, domain) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			item_count = excluded.item_count
	`, string(accountID), string(refreshDomain), now, len(seen)); err != nil {
		return nil, false, fmt.Errorf("save refresh state: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit snapshot: %w", err)
	}

	return added, hadPrevious, nil
}

func (s *SnapshotStore) LastRefreshed(ctx context.Context, accountID domain.AccountID) (map[domain.RefreshDomain]time.Time, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT domain, fetched_at FROM refresh_state WHERE account_id = ?", string(accountID))
	if err != nil {
		return nil, fmt.Errorf("query refresh state: %w", err)
	}
	defer rows.Close()

	refreshed := map[domain.RefreshDomain]time.Time{}
	for rows.Next() {
		var refreshDomain, fetchedAt string
		if err := rows.Scan(&refreshDomain, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan refresh state: %w", err)
		}
		refreshed[domain.RefreshDomain(refreshDomain)] = parseTime(fetchedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh state: %w", err)
	}

	return refreshed, nil
}

// Items returns the cached snapshot for one account and domain, newest first.
func (s *SnapshotStore) Items(ctx context.Context, accountID domain.AccountID, refreshDomain domain.RefreshDomain) ([]domain.SnapshotItem, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT item_id, title, body, at, payload
		FROM refresh_snapshots
		WHERE account_id = ? AND domain = ?
		ORDER BY at DESC, item_id
	`, string(accountID), string(refreshDomain))
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var items []domain.SnapshotItem
	for rows.Next() {
		var (
			item domain.SnapshotItem
			at   sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &at, &item.Payload); err != nil {
			return nil, fmt.Errorf("scan snapshot item: %w", err)
		}
		item.At = parseNullableTime(at)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}

	return items, nil
}

func knownItemIDs(ctx context.Context, tx *sql.Tx, accountID domain.AccountID, refreshDomain domain.RefreshDomain) (map[string]struct{}, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT item_id FROM refresh_snapshots WHERE account_id = ? AND domain = ?",
		string(accountID), string(refreshDomain))
	if err != nil {
		return nil, fmt.Errorf("query snapshot ids: %w", err)
	}
	defer rows.Close()

	known := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot ids: %w", err)
	}

	return known, nil
}
