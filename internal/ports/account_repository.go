package ports

import (
	"context"

	"github.com/bnema/schoolsync/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
}

type SessionRepository interface {
	Get(ctx context.Context) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}
