package toml

import (
	"context"
	"sync"

	"github.com/spf13/viper"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

const (
	AccountsPathKey = "accounts.path"

	accountsFile = "accounts.toml"
)

// Repository stores accounts in a versioned TOML file. List preserves file
// order, which is the order background cycles visit accounts in.
type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var _ ports.AccountRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	path, err := resolvePath(cfg, AccountsPathKey, accountsFile)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.accountsPath
}

func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(account)
	replaced := false
	for i := range file.Accounts {
		if file.Accounts[i].ID == encoded.ID {
			file.Accounts[i] = encoded
			replaced = true
			break
		}
	}
	if !replaced {
		file.Accounts = append(file.Accounts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	file.applyDefaults()
	return writeTOMLFile(r.accountsPath, "accounts", file)
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Account{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	var file fileSchema
	if err := readTOMLFile(r.accountsPath, "accounts", &file); err != nil {
		return fileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:         string(account.ID),
		Name:       account.Name,
		Service:    string(account.Service),
		IsExternal: account.IsExternal,
		Personalization: personalizationSchema{
			Notifications: notificationsSchema{Enabled: account.Personalization.Notifications.Enabled},
		},
		Metadata: metadataSchema{
			RemoteUserID: account.Metadata.RemoteUserID,
			Campus:       account.Metadata.Campus,
			SecretRef:    account.Metadata.SecretRef,
		},
		Auth: authSchema{
			Method:    string(account.Auth.Method),
			SecretRef: account.Auth.SecretRef,
		},
	}
}

func fromSchema(account accountSchema) domain.Account {
	metadataSecretRef := account.Metadata.SecretRef
	if metadataSecretRef == "" {
		metadataSecretRef = account.Auth.SecretRef
	}

	authSecretRef := account.Auth.SecretRef
	if authSecretRef == "" {
		authSecretRef = account.Metadata.SecretRef
	}

	service := domain.ServiceID(account.Service)
	if service == "" {
		service = domain.ServiceEcole42
	}

	return domain.Account{
		ID:         domain.AccountID(account.ID),
		Name:       account.Name,
		Service:    service,
		IsExternal: account.IsExternal,
		Personalization: domain.Personalization{
			Notifications: domain.NotificationSettings{Enabled: account.Personalization.Notifications.Enabled},
		},
		Metadata: domain.AccountMetadata{
			RemoteUserID: account.Metadata.RemoteUserID,
			Campus:       account.Metadata.Campus,
			SecretRef:    metadataSecretRef,
		},
		Auth: domain.Auth{
			Method:    domain.AuthMethod(account.Auth.Method),
			SecretRef: authSecretRef,
		},
	}
}
