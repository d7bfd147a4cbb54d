package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	account    lipgloss.Style
	active     lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	domainKey  lipgloss.Style
	domainMeta lipgloss.Style
	task       lipgloss.Style
	newData    lipgloss.Style
	noData     lipgloss.Style
	failed     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		active:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		domainKey:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(12),
		domainMeta: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		task:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		newData:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		noData:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		failed:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
