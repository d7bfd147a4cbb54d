package toml

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/bnema/schoolsync/internal/ports"
)

const (
	FlagsPathKey = "flags.path"
	// FlagsEnv lists extra flags, comma separated, that are defined for the
	// process lifetime without touching the flags file.
	FlagsEnv = "SCHOOLSYNC_FLAGS"

	flagsFile = "flags.toml"
)

var errEmptyFlagName = errors.New("flag name is empty")

// FlagRepository is a FlagStore backed by flags.toml. The file is read on
// every call so a running daemon sees changes made by the CLI immediately.
type FlagRepository struct {
	path   string
	mu     *sync.RWMutex
	getenv func(string) string
}

var _ ports.FlagStore = (*FlagRepository)(nil)

func NewFlagRepository(cfg *viper.Viper) (*FlagRepository, error) {
	path, err := resolvePath(cfg, FlagsPathKey, flagsFile)
	if err != nil {
		return nil, err
	}

	return &FlagRepository{path: path, mu: lockForPath(path), getenv: os.Getenv}, nil
}

func (r *FlagRepository) Defined(ctx context.Context, name string) (bool, error) {
	flags, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(flags, normalizeFlag(name)), nil
}

// List returns the union of file and environment flags, sorted.
func (r *FlagRepository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	file, err := r.readSchema()
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	flags := append([]string(nil), file.Defined...)
	for _, raw := range strings.Split(r.getenv(FlagsEnv), ",") {
		if name := normalizeFlag(raw); name != "" {
			flags = append(flags, name)
		}
	}

	slices.Sort(flags)
	return slices.Compact(flags), nil
}

func (r *FlagRepository) Define(ctx context.Context, name string) error {
	name = normalizeFlag(name)
	if name == "" {
		return errEmptyFlagName
	}

	return r.update(ctx, func(defined []string) []string {
		if slices.Contains(defined, name) {
			return defined
		}
		return append(defined, name)
	})
}

// Remove drops a flag from the file. Flags set through the environment stay
// defined.
func (r *FlagRepository) Remove(ctx context.Context, name string) error {
	name = normalizeFlag(name)
	if name == "" {
		return errEmptyFlagName
	}

	return r.update(ctx, func(defined []string) []string {
		return slices.DeleteFunc(defined, func(flag string) bool { return flag == name })
	})
}

func (r *FlagRepository) update(ctx context.Context, apply func([]string) []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	file.Defined = apply(file.Defined)
	slices.Sort(file.Defined)
	if file.Defined == nil {
		file.Defined = []string{}
	}

	return writeTOMLFile(r.path, "flags", file)
}

func (r *FlagRepository) readSchema() (flagsFileSchema, error) {
	var file flagsFileSchema
	if err := readTOMLFile(r.path, "flags", &file); err != nil {
		return flagsFileSchema{}, err
	}
	if err := checkVersion("flags", file.Version); err != nil {
		return flagsFileSchema{}, err
	}
	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}

	normalized := make([]string, 0, len(file.Defined))
	for _, raw := range file.Defined {
		if name := normalizeFlag(raw); name != "" {
			normalized = append(normalized, name)
		}
	}
	file.Defined = normalized

	return file, nil
}

func normalizeFlag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
