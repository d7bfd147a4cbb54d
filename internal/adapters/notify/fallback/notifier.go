// Package fallback tries notifiers in order until one delivers.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

var errNoNotifiers = errors.New("fallback notifier requires at least one notifier")

type Notifier struct {
	notifiers []ports.Notifier
}

var _ ports.Notifier = (*Notifier)(nil)

func New(notifiers ...ports.Notifier) (*Notifier, error) {
	if len(notifiers) == 0 {
		return nil, errNoNotifiers
	}
	for i, n := range notifiers {
		if n == nil {
			return nil, fmt.Errorf("fallback notifier #%d is nil", i)
		}
	}
	return &Notifier{notifiers: notifiers}, nil
}

func (f *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	var errs []error
	for i, n := range f.notifiers {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		err := n.Notify(ctx, notification)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("notifier #%d: %w", i, err))
	}
	return errors.Join(errs...)
}

// Cancel is sent to every notifier since any of them may have shown id.
func (f *Notifier) Cancel(ctx context.Context, id string) error {
	var errs []error
	for i, n := range f.notifiers {
		if err := n.Cancel(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("notifier #%d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
