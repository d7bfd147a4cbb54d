package ports

import "context"

// FlagStore is the process-wide feature flag store. A flag is either defined
// or absent; it carries no value.
type FlagStore interface {
	Defined(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Define(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}
