package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/schoolsync/internal/application"
	"github.com/bnema/schoolsync/internal/domain"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(statuses []application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("School Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, opts RenderOptions, s styles) string {
	title := s.account.Render(accountTitle(status.Account.Name, status.Account.ID))
	if status.Active {
		title += " " + s.active.Render("[active]")
	}

	parts := []string{
		title,
		s.detail.Render(accountDetail(status.Account)),
	}
	parts = append(parts, refreshLines(status, opts, s)...)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountDetail(account domain.Account) string {
	kind := "primary"
	if account.IsExternal {
		kind = "external"
	}
	notifications := "off"
	if account.NotificationsEnabled() {
		notifications = "on"
	}

	service := string(account.Service)
	if service == "" {
		service = string(domain.ServiceEcole42)
	}

	return fmt.Sprintf("service: %s  auth: %s  %s  notifications: %s", service, authLabel(account.Auth.Method), kind, notifications)
}

func authLabel(method domain.AuthMethod) string {
	if method == "" {
		return "none"
	}

	return string(method)
}

func refreshLines(status application.Status, opts RenderOptions, s styles) []string {
	if len(status.LastRefreshed) == 0 {
		return []string{s.empty.Render("never refreshed")}
	}

	lines := make([]string, 0, len(status.LastRefreshed))
	for _, refreshDomain := range domain.RefreshDomains() {
		at, ok := status.LastRefreshed[refreshDomain]
		if !ok {
			continue
		}

		line := s.domainKey.Render(refreshDomain.Label()+":") +
			lipgloss.NewStyle().Foreground(ageColor(at, opts)).Render(formatAge(at, opts.Now))
		if isStale(at, opts) {
			line += " " + s.warning.Render("[stale]")
		}
		lines = append(lines, line)
	}

	return lines
}

func isStale(at time.Time, opts RenderOptions) bool {
	if opts.Now.IsZero() || opts.StaleAfter <= 0 {
		return false
	}
	return opts.Now.Sub(at) > opts.StaleAfter
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return "refreshed " + at.Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "refreshed just now"
	case elapsed < time.Hour:
		return plural("refreshed %d minute%s ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return plural("refreshed %d hour%s ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("refreshed %s", at.Format("15:04 on 02 Jan"))
	}
}

func plural(format string, n int) string {
	suffix := "s"
	if n == 1 {
		suffix = ""
	}
	return fmt.Sprintf(format, n, suffix)
}

func accountTitle(name string, id domain.AccountID) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == string(id) {
		return string(id)
	}
	return fmt.Sprintf("%s (%s)", trimmed, id)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 (faded) to 255 (bright).
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(math.Round(baseColor + (targetColor-baseColor)*normalized))

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}

// ageColor fades from bright for fresh data to grey once the data reaches
// the stale threshold.
func ageColor(at time.Time, opts RenderOptions) lipgloss.Color {
	if opts.Now.IsZero() || opts.StaleAfter <= 0 || at.IsZero() {
		return lipgloss.Color("255")
	}

	remaining := opts.StaleAfter - opts.Now.Sub(at)
	return interpolateColor(remaining.Seconds(), 0, opts.StaleAfter.Seconds())
}
