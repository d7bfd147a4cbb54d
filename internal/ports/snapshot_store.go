package ports

import (
	"context"
	"time"

	"github.com/bnema/schoolsync/internal/domain"
)

type SnapshotStore interface {
	// ReplaceSnapshot stores items as the latest data for (account, domain).
	// It returns the items that were not part of the previous snapshot and
	// whether a previous snapshot existed at all.
	ReplaceSnapshot(ctx context.Context, accountID domain.AccountID, refreshDomain domain.RefreshDomain, items []domain.SnapshotItem) (added []domain.SnapshotItem, hadPrevious bool, err error)
	LastRefreshed(ctx context.Context, accountID domain.AccountID) (map[domain.RefreshDomain]time.Time, error)
}
