package application

import (
	"context"
	"fmt"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

// SessionService owns the process-wide active account context.
type SessionService struct {
	sessions ports.SessionRepository
	clock    ports.Clock
}

func NewSessionService(sessions ports.SessionRepository, clock ports.Clock) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &SessionService{sessions: sessions, clock: clock}
}

func (s *SessionService) SwitchTo(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return fmt.Errorf("switch session: %w", domain.ErrAccountNotFound)
	}

	session := domain.Session{
		ActiveAccountID: account.ID,
		SwitchedAt:      s.clock.Now(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *SessionService) ActiveAccountID(ctx context.Context) (domain.AccountID, error) {
	session, err := s.sessions.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	return session.ActiveAccountID, nil
}
