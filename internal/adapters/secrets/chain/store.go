// Package chain tries an ordered list of secret stores until one succeeds.
package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/schoolsync/internal/adapters/secrets/file"
	passstore "github.com/bnema/schoolsync/internal/adapters/secrets/pass"
	"github.com/bnema/schoolsync/internal/ports"
)

type Store struct {
	backends []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNoBackends = errors.New("secret store chain has no backends")
	errNilBackend = errors.New("secret store backend is nil")
)

func NewStore(backends ...ports.SecretStore) *Store {
	store, err := NewStoreChecked(backends...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(backends ...ports.SecretStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("backend %d: %w", i, errNilBackend)
		}
	}

	return &Store{backends: append([]ports.SecretStore(nil), backends...)}, nil
}

// NewPassFirstWithFileFallback prefers pass and falls back to files under fileRoot.
func NewPassFirstWithFileFallback(passPrefix, fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	return s.each("put", func(backend ports.SecretStore) error {
		return backend.Put(ctx, key, value)
	})
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.each("get", func(backend ports.SecretStore) error {
		got, err := backend.Get(ctx, key)
		if err == nil {
			value = got
		}
		return err
	})
	return value, err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.each("delete", func(backend ports.SecretStore) error {
		return backend.Delete(ctx, key)
	})
}

// each stops at the first backend that succeeds. Cancellation is returned
// as is, without trying the remaining backends.
func (s *Store) each(op string, call func(ports.SecretStore) error) error {
	var errs []error
	for i, backend := range s.backends {
		err := call(backend)
		if err == nil {
			return nil
		}
		if shouldSkipFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s backend %s failed: %w", backendName(i), op, err))
	}

	return errors.Join(errs...)
}

func backendName(i int) string {
	if i == 0 {
		return "primary"
	}
	return fmt.Sprintf("fallback #%d", i)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
