package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tomlrepo "github.com/bnema/schoolsync/internal/adapters/repo/toml"
	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports/mocks"
)

const (
	tokenRef    = "ecole42://student/token"
	oldTokenRef = "ecole42://student/old_token"
	tokenValue  = `{"access_token":"abc"}`
)

func oauthCommand(secretKey string) SetAuthCommand {
	return SetAuthCommand{
		ID:          "student",
		Method:      domain.AuthMethodOAuth,
		SecretKey:   secretKey,
		SecretValue: tokenValue,
	}
}

func TestServiceAddAccount(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	want := domain.Account{
		ID:      "student",
		Name:    "Student",
		Service: domain.ServiceEcole42,
		Personalization: domain.Personalization{
			Notifications: domain.NotificationSettings{Enabled: true},
		},
		Metadata: domain.AccountMetadata{RemoteUserID: "4242", Campus: "Paris"},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{}, domain.ErrAccountNotFound)
	repo.EXPECT().Save(mockAnyContext(), want).Return(nil)

	got, err := service.AddAccount(context.Background(), AddAccountCommand{
		ID:                   " student ",
		Name:                 "Student",
		NotificationsEnabled: true,
		RemoteUserID:         "4242",
		Campus:               " Paris",
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestServiceAddAccountRejectsDuplicatesAndUnknownServices(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{ID: "student"}, nil)

	_, err := service.AddAccount(context.Background(), AddAccountCommand{ID: "student"})
	assert.ErrorContains(t, err, "already exists")

	_, err = service.AddAccount(context.Background(), AddAccountCommand{ID: "other", Service: "pronote"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedService)

	_, err = service.AddAccount(context.Background(), AddAccountCommand{ID: "  "})
	assert.ErrorContains(t, err, "account id is required")
}

func TestServiceSetAuthSuccess(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	account := domain.Account{ID: "student", Name: "Student", Service: domain.ServiceEcole42}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Service:  domain.ServiceEcole42,
		Metadata: domain.AccountMetadata{SecretRef: tokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: tokenRef},
	}).Return(nil)

	require.NoError(t, service.SetAuth(context.Background(), oauthCommand(tokenRef)))
}

func TestServiceSetAuthCreatesMissingAccount(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{}, domain.ErrAccountNotFound)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Account student",
		Service:  domain.ServiceEcole42,
		Metadata: domain.AccountMetadata{SecretRef: tokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: tokenRef},
	}).Return(nil)

	require.NoError(t, service.SetAuth(context.Background(), oauthCommand(tokenRef)))
}

func TestServiceSetAuthRotationDeletesPreviousSecretRef(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	account := domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: oldTokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: oldTokenRef},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: tokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: tokenRef},
	}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), oldTokenRef).Return(nil)

	require.NoError(t, service.SetAuth(context.Background(), oauthCommand(tokenRef)))
}

func TestServiceSetAuthRotationRollsBackWhenPreviousSecretDeleteFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	deleteErr := errors.New("delete old secret failed")
	account := domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: oldTokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodToken, SecretRef: oldTokenRef},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: tokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: tokenRef},
	}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), oldTokenRef).Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), account).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), tokenRef).Return(nil)

	err := service.SetAuth(context.Background(), oauthCommand(tokenRef))
	require.ErrorIs(t, err, deleteErr)
}

func TestServiceSetAuthRotationRestoresOnlyRemainingOldRefOnPartialDeleteFailure(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	deleteErr := errors.New("delete old auth ref failed")
	account := domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: "ecole42://student/old_metadata"},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: "ecole42://student/old_auth"},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: tokenRef},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: tokenRef},
	}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/old_metadata").Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/old_auth").Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: "ecole42://student/old_auth"},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: "ecole42://student/old_auth"},
	}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), tokenRef).Return(nil)

	err := service.SetAuth(context.Background(), oauthCommand(tokenRef))
	require.ErrorIs(t, err, deleteErr)
}

func TestServiceSetAuthFailsWhenSecretStorePutFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	putErr := errors.New("put failed")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{ID: "student"}, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(putErr)

	err := service.SetAuth(context.Background(), oauthCommand(tokenRef))
	require.ErrorIs(t, err, putErr)
}

func TestServiceSetAuthCompensatesSecretWriteWhenSaveFails(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	saveErr := errors.New("save failed")
	rollbackErr := errors.New("rollback failed")
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{ID: "student"}, nil)
	store.EXPECT().Put(mockAnyContext(), tokenRef, tokenValue).Return(nil)
	repo.EXPECT().Save(mockAnyContext(), mock.AnythingOfType("domain.Account")).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), tokenRef).Return(rollbackErr)

	err := service.SetAuth(context.Background(), oauthCommand(tokenRef))
	require.ErrorIs(t, err, saveErr)
	require.ErrorIs(t, err, rollbackErr)
}

func TestServiceRemoveAuthDeletesEveryUniqueRef(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	account := domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: "ecole42://student/metadata"},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: "ecole42://student/auth"},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "student", Name: "Student"}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/metadata").Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/auth").Return(nil)

	require.NoError(t, service.RemoveAuth(context.Background(), "student"))
}

func TestServiceRemoveAuthRestoresRemainingRefAfterPartialDeleteFailure(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	store := mocks.NewMockSecretStore(t)
	service := NewService(repo, store, mocks.NewMockClock(t))

	deleteErr := errors.New("delete auth ref failed")
	account := domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: "ecole42://student/metadata"},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: "ecole42://student/auth"},
	}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "student", Name: "Student"}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/metadata").Return(nil)
	store.EXPECT().Delete(mockAnyContext(), "ecole42://student/auth").Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:       "student",
		Name:     "Student",
		Metadata: domain.AccountMetadata{SecretRef: "ecole42://student/auth"},
		Auth:     domain.Auth{Method: domain.AuthMethodOAuth, SecretRef: "ecole42://student/auth"},
	}).Return(nil)

	err := service.RemoveAuth(context.Background(), "student")
	require.ErrorIs(t, err, deleteErr)
}

func TestServiceSetNotificationsAndExternal(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	account := domain.Account{ID: "student", Name: "Student"}
	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(account, nil).Twice()
	repo.EXPECT().Save(mockAnyContext(), domain.Account{
		ID:              "student",
		Name:            "Student",
		Personalization: domain.Personalization{Notifications: domain.NotificationSettings{Enabled: true}},
	}).Return(nil).Once()
	repo.EXPECT().Save(mockAnyContext(), domain.Account{ID: "student", Name: "Student", IsExternal: true}).Return(nil).Once()

	require.NoError(t, service.SetNotifications(context.Background(), "student", true))
	require.NoError(t, service.SetExternal(context.Background(), "student", true))
}

func TestServiceSetNotificationsMissingAccount(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("ghost")).Return(domain.Account{}, domain.ErrAccountNotFound)

	err := service.SetNotifications(context.Background(), "ghost", true)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestServiceGetStatusAllMarksActiveAndLastRefresh(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	sessions := mocks.NewMockSessionRepository(t)
	snapshots := newMemorySnapshots()
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t), WithSessions(sessions), WithSnapshots(snapshots))

	repo.EXPECT().List(mockAnyContext()).Return([]domain.Account{{ID: "one"}, {ID: "two"}}, nil)
	sessions.EXPECT().Get(mockAnyContext()).Return(domain.Session{ActiveAccountID: "two"}, nil)

	all, err := service.GetStatusAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].Active)
	assert.True(t, all[1].Active)
}

type fixedRefreshes map[domain.AccountID]map[domain.RefreshDomain]time.Time

func (f fixedRefreshes) ReplaceSnapshot(context.Context, domain.AccountID, domain.RefreshDomain, []domain.SnapshotItem) ([]domain.SnapshotItem, bool, error) {
	return nil, false, errors.New("read only")
}

func (f fixedRefreshes) LastRefreshed(_ context.Context, id domain.AccountID) (map[domain.RefreshDomain]time.Time, error) {
	return f[id], nil
}

func TestServiceGetStatusReportsLastRefreshed(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	news := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	grades := news.Add(time.Minute)
	service := NewService(repo, nil, nil, WithSnapshots(fixedRefreshes{
		"student": {domain.RefreshNews: news, domain.RefreshGrades: grades},
	}))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{ID: "student"}, nil)

	status, err := service.GetStatus(context.Background(), "student")
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, news, status.LastRefreshed[domain.RefreshNews])
	assert.Equal(t, grades, status.LastRefreshedAt())
}

func TestServiceGetStatusReturnsRepositoryError(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	repo.EXPECT().GetByID(mockAnyContext(), domain.AccountID("student")).Return(domain.Account{}, domain.ErrAccountNotFound)

	_, err := service.GetStatus(context.Background(), "student")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestServiceGetStatusAllReturnsListError(t *testing.T) {
	repo := mocks.NewMockAccountRepository(t)
	service := NewService(repo, mocks.NewMockSecretStore(t), mocks.NewMockClock(t))

	listErr := errors.New("list failed")
	repo.EXPECT().List(mockAnyContext()).Return(nil, listErr)

	_, err := service.GetStatusAll(context.Background())
	require.ErrorIs(t, err, listErr)
}

func TestServiceSettingsPersistAcrossServiceInstances(t *testing.T) {
	t.Parallel()

	cfg := viper.New()
	cfg.Set(tomlrepo.AccountsPathKey, filepath.Join(t.TempDir(), "accounts.toml"))

	repo, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	serviceA := NewService(repo, nil, nil)
	_, err = serviceA.AddAccount(context.Background(), AddAccountCommand{ID: "student", Name: "Student"})
	require.NoError(t, err)
	require.NoError(t, serviceA.SetNotifications(context.Background(), "student", true))

	serviceB := NewService(repo, nil, nil)
	status, err := serviceB.GetStatus(context.Background(), "student")
	require.NoError(t, err)
	assert.True(t, status.Account.NotificationsEnabled())
	assert.Equal(t, domain.ServiceEcole42, status.Account.Service)
}

func mockAnyContext() interface{} {
	return mock.Anything
}
