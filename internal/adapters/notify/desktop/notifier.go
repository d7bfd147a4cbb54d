// Package desktop shows notifications through the freedesktop notify-send
// command.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

const (
	DefaultAppName = "schoolsync"

	binary = "notify-send"
)

var ErrUnavailable = errors.New("notify-send command unavailable")

type runFunc func(ctx context.Context, args ...string) (stderr string, err error)

type Notifier struct {
	appName string
	run     runFunc
}

var _ ports.Notifier = (*Notifier)(nil)

func New(appName string) *Notifier {
	if strings.TrimSpace(appName) == "" {
		appName = DefaultAppName
	}
	return &Notifier{appName: appName, run: runNotifySend}
}

func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stderr, err := n.run(ctx, n.args(notification)...)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || stderr == "" {
			return fmt.Errorf("notify %q: %w", notification.ID, err)
		}
		return fmt.Errorf("notify %q: %w: %s", notification.ID, err, stderr)
	}

	return nil
}

// Cancel is a no-op: notify-send cannot withdraw a notification. Progress
// notifications are transient and expire on their own.
func (n *Notifier) Cancel(context.Context, string) error {
	return nil
}

func (n *Notifier) args(notification domain.Notification) []string {
	args := []string{"--app-name=" + n.appName}
	if notification.Channel != "" {
		args = append(args, "--category="+notification.Channel)
	}
	if notification.Progress {
		args = append(args,
			"--urgency=low",
			"--hint=int:transient:1",
			"--hint=string:x-canonical-private-synchronous:"+notification.ID,
		)
	}

	title := notification.Title
	if title == "" {
		title = n.appName
	}

	return append(args, title, notification.Body)
}

func runNotifySend(ctx context.Context, args ...string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrUnavailable
		}
		return "", fmt.Errorf("locate %s: %w", binary, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	return strings.TrimSpace(stderr.String()), err
}
