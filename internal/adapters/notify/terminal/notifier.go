// Package terminal prints notifications as styled lines, for headless hosts.
package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

var (
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	channelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true)
)

type Notifier struct {
	out io.Writer
	now func() time.Time

	mu sync.Mutex
}

var _ ports.Notifier = (*Notifier)(nil)

func New(out io.Writer, now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{out: out, now: now}
}

func (n *Notifier) Notify(_ context.Context, notification domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintln(n.out, n.render(notification))
	return err
}

func (n *Notifier) Cancel(_ context.Context, id string) error {
	if id != domain.StatusBackgroundNotificationID {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	_, err := fmt.Fprintln(n.out, timeStyle.Render(n.now().Format("15:04:05"))+" "+progressStyle.Render("done"))
	return err
}

func (n *Notifier) render(notification domain.Notification) string {
	parts := []string{timeStyle.Render(n.now().Format("15:04:05"))}
	if notification.Channel != "" {
		parts = append(parts, channelStyle.Render("["+notification.Channel+"]"))
	}
	if notification.Title != "" {
		parts = append(parts, titleStyle.Render(notification.Title))
	}

	body := strings.TrimSpace(notification.Body)
	if notification.Progress {
		body = progressStyle.Render(body + "…")
	}
	if body != "" {
		parts = append(parts, body)
	}

	return strings.Join(parts, " ")
}
