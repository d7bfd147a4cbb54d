package ports

import (
	"context"

	"github.com/bnema/schoolsync/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
	Cancel(ctx context.Context, id string) error
}
