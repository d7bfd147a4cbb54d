package status

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/schoolsync/internal/domain"
)

func renderRuns(runs []domain.RunRecord, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Background Runs"),
		s.header.Render(fmt.Sprintf("runs: %d", len(runs))),
	}

	if len(runs) == 0 {
		lines = append(lines, s.empty.Render("No background runs recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, run := range runs {
		lines = append(lines, runLine(run, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func runLine(run domain.RunRecord, opts RenderOptions, s styles) string {
	started := run.StartedAt.Format("2006-01-02 15:04:05")
	if !opts.Now.IsZero() {
		started = run.StartedAt.In(opts.Now.Location()).Format("2006-01-02 15:04:05")
	}

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.domainMeta.Render(started),
		" ",
		s.task.Render(run.TaskName),
		" ",
		outcomeStyle(run.Outcome, s).Render(run.Outcome.String()),
		" ",
		s.domainMeta.Render(fmt.Sprintf("(%s)", run.Duration().Round(100*time.Millisecond))),
	)
	if run.Error != "" {
		line += " " + s.warning.Render(run.Error)
	}

	return line
}

func outcomeStyle(outcome domain.RefreshOutcome, s styles) lipgloss.Style {
	switch outcome {
	case domain.OutcomeNewData:
		return s.newData
	case domain.OutcomeFailed:
		return s.failed
	default:
		return s.noData
	}
}
