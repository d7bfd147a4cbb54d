package toml

import (
	"context"
	"sync"

	"github.com/spf13/viper"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

const (
	RuntimePathKey = "runtime.path"

	runtimeFile = "runtime.toml"
)

// RuntimeRepository persists the active session. A missing file is an
// empty session.
type RuntimeRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.SessionRepository = (*RuntimeRepository)(nil)

func NewRuntimeRepository(cfg *viper.Viper) (*RuntimeRepository, error) {
	path, err := resolvePath(cfg, RuntimePathKey, runtimeFile)
	if err != nil {
		return nil, err
	}

	return &RuntimeRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *RuntimeRepository) Get(ctx context.Context) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var file runtimeFileSchema
	if err := readTOMLFile(r.path, "runtime", &file); err != nil {
		return domain.Session{}, err
	}
	if err := checkVersion("runtime", file.Version); err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		ActiveAccountID: domain.AccountID(file.ActiveAccountID),
		SwitchedAt:      parseTime(file.SwitchedAt),
	}, nil
}

func (r *RuntimeRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return writeTOMLFile(r.path, "runtime", runtimeFileSchema{
		Version:         currentSchemaVersion,
		ActiveAccountID: string(session.ActiveAccountID),
		SwitchedAt:      formatTime(session.SwitchedAt),
	})
}
