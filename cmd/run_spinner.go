package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/schoolsync/internal/domain"
)

type cycleDoneMsg struct {
	outcome domain.RefreshOutcome
	err     error
}

type cycleSpinnerModel struct {
	spinner spinner.Model
	label   string
	run     tea.Cmd
	outcome domain.RefreshOutcome
	err     error
	done    bool
}

func newCycleSpinnerModel(label string, run tea.Cmd) cycleSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return cycleSpinnerModel{
		spinner: s,
		label:   label,
		run:     run,
	}
}

func (m cycleSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m cycleSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case cycleDoneMsg:
		m.done = true
		m.outcome = msg.outcome
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m cycleSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runCycleSpinner shows a spinner on output while run executes.
func runCycleSpinner(ctx context.Context, output io.Writer, run func(context.Context) (domain.RefreshOutcome, error)) (domain.RefreshOutcome, error) {
	runCmd := func() tea.Msg {
		outcome, err := run(ctx)
		return cycleDoneMsg{outcome: outcome, err: err}
	}

	p := tea.NewProgram(
		newCycleSpinnerModel("Refreshing accounts...", runCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.OutcomeFailed, err
	}

	result, ok := finalModel.(cycleSpinnerModel)
	if !ok {
		return domain.OutcomeFailed, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.outcome, result.err
}
