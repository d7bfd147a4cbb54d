package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

// Service manages the account store and the credentials attached to each
// account.
type Service struct {
	repo      ports.AccountRepository
	store     ports.SecretStore
	sessions  ports.SessionRepository
	snapshots ports.SnapshotStore
	clock     ports.Clock
}

type ServiceOption func(*Service)

// WithSessions lets status queries mark the active account.
func WithSessions(sessions ports.SessionRepository) ServiceOption {
	return func(s *Service) {
		s.sessions = sessions
	}
}

// WithSnapshots lets status queries report last refresh times.
func WithSnapshots(snapshots ports.SnapshotStore) ServiceOption {
	return func(s *Service) {
		s.snapshots = snapshots
	}
}

func NewService(repo ports.AccountRepository, store ports.SecretStore, clock ports.Clock, opts ...ServiceOption) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &Service{
		repo:  repo,
		store: store,
		clock: clock,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) AddAccount(ctx context.Context, cmd AddAccountCommand) (domain.Account, error) {
	id := domain.AccountID(strings.TrimSpace(string(cmd.ID)))
	if id == "" {
		return domain.Account{}, errors.New("account id is required")
	}

	service := cmd.Service
	if service == "" {
		service = domain.ServiceEcole42
	}
	if service != domain.ServiceEcole42 {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedService, service)
	}

	_, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return domain.Account{}, fmt.Errorf("account %q already exists", id)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		name = fmt.Sprintf("Account %s", id)
	}

	account := domain.Account{
		ID:         id,
		Name:       name,
		Service:    service,
		IsExternal: cmd.External,
		Personalization: domain.Personalization{
			Notifications: domain.NotificationSettings{Enabled: cmd.NotificationsEnabled},
		},
		Metadata: domain.AccountMetadata{
			RemoteUserID: strings.TrimSpace(cmd.RemoteUserID),
			Campus:       strings.TrimSpace(cmd.Campus),
		},
	}
	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// SetAuth stores a new credential, points the account at it and then drops
// the credentials it replaced. Any failure after the secret write is undone.
func (s *Service) SetAuth(ctx context.Context, cmd SetAuthCommand) error {
	account, err := s.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: cmd.ID, Name: fmt.Sprintf("Account %s", cmd.ID), Service: domain.ServiceEcole42}
	}
	before := account
	previous := uniqueSecretRefs(account.Metadata.SecretRef, account.Auth.SecretRef)

	if err := s.store.Put(ctx, cmd.SecretKey, cmd.SecretValue); err != nil {
		return fmt.Errorf("store auth secret: %w", err)
	}

	account.Auth = domain.Auth{Method: cmd.Method, SecretRef: cmd.SecretKey}
	account.Metadata.SecretRef = cmd.SecretKey

	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := s.store.Delete(ctx, cmd.SecretKey); rollbackErr != nil {
			return fmt.Errorf("save account auth and rollback stored secret: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("save account auth: %w", err)
	}

	for _, ref := range previous {
		if ref == cmd.SecretKey {
			continue
		}
		if err := s.store.Delete(ctx, ref); err != nil {
			return s.rollbackAuthRotation(ctx, before, previous, ref, cmd.SecretKey, err)
		}
	}

	return nil
}

func (s *Service) rollbackAuthRotation(ctx context.Context, before domain.Account, previous []string, failedRef, newRef string, cause error) error {
	remaining := remainingSecretRefs(previous, failedRef)
	restore := before
	applySecretRefs(&restore, remaining)
	if len(remaining) == 0 {
		restore.Auth.Method = ""
	}

	var rollbackErr error
	if err := s.repo.Save(ctx, restore); err != nil {
		rollbackErr = errors.Join(rollbackErr, err)
	}
	if err := s.store.Delete(ctx, newRef); err != nil {
		rollbackErr = errors.Join(rollbackErr, err)
	}
	if rollbackErr != nil {
		return fmt.Errorf("delete previous auth secret and rollback auth update: %w", errors.Join(cause, rollbackErr))
	}

	return fmt.Errorf("delete previous auth secret: %w", cause)
}

func (s *Service) RemoveAuth(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	method := account.Auth.Method
	refs := uniqueSecretRefs(account.Metadata.SecretRef, account.Auth.SecretRef)

	account.Auth = domain.Auth{}
	account.Metadata.SecretRef = ""
	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account auth: %w", err)
	}

	for _, ref := range refs {
		if err := s.store.Delete(ctx, ref); err != nil {
			remaining := remainingSecretRefs(refs, ref)
			restore := account
			applySecretRefs(&restore, remaining)
			if len(remaining) > 0 {
				restore.Auth.Method = method
			}
			if restoreErr := s.repo.Save(ctx, restore); restoreErr != nil {
				return fmt.Errorf("delete auth secret and restore remaining refs: %w", errors.Join(err, restoreErr))
			}
			return fmt.Errorf("delete auth secret: %w", err)
		}
	}

	return nil
}

func (s *Service) SetNotifications(ctx context.Context, id domain.AccountID, enabled bool) error {
	return s.update(ctx, id, "notifications", func(account *domain.Account) {
		account.Personalization.Notifications.Enabled = enabled
	})
}

func (s *Service) SetExternal(ctx context.Context, id domain.AccountID, external bool) error {
	return s.update(ctx, id, "external flag", func(account *domain.Account) {
		account.IsExternal = external
	})
}

func (s *Service) update(ctx context.Context, id domain.AccountID, what string, apply func(*domain.Account)) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	apply(&account)

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", what, err)
	}

	return nil
}

func (s *Service) GetStatus(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	active, err := s.activeAccountID(ctx)
	if err != nil {
		return Status{}, err
	}

	return s.statusFromAccount(ctx, account, active)
}

func (s *Service) GetStatusAll(ctx context.Context) ([]Status, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	active, err := s.activeAccountID(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		status, err := s.statusFromAccount(ctx, account, active)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (s *Service) activeAccountID(ctx context.Context) (domain.AccountID, error) {
	if s.sessions == nil {
		return "", nil
	}

	session, err := s.sessions.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	return session.ActiveAccountID, nil
}

func (s *Service) statusFromAccount(ctx context.Context, account domain.Account, active domain.AccountID) (Status, error) {
	status := Status{
		Account: account,
		Active:  active != "" && account.ID == active,
	}
	if s.snapshots == nil {
		return status, nil
	}

	refreshed, err := s.snapshots.LastRefreshed(ctx, account.ID)
	if err != nil {
		return Status{}, fmt.Errorf("last refreshed for %s: %w", account.ID, err)
	}
	status.LastRefreshed = refreshed

	return status, nil
}

func uniqueSecretRefs(secretRefs ...string) []string {
	result := make([]string, 0, len(secretRefs))
	seen := make(map[string]struct{}, len(secretRefs))

	for _, ref := range secretRefs {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		result = append(result, ref)
	}

	return result
}

// remainingSecretRefs returns failed and every ref after it; those were not
// deleted.
func remainingSecretRefs(secretRefs []string, failed string) []string {
	for i, ref := range secretRefs {
		if ref == failed {
			return secretRefs[i:]
		}
	}
	return nil
}

func applySecretRefs(account *domain.Account, secretRefs []string) {
	account.Metadata.SecretRef = ""
	account.Auth.SecretRef = ""

	if len(secretRefs) > 0 {
		account.Metadata.SecretRef = secretRefs[0]
		account.Auth.SecretRef = secretRefs[0]
	}
	if len(secretRefs) > 1 {
		account.Auth.SecretRef = secretRefs[1]
	}
}
