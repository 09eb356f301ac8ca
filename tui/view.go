package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	inProgressStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

func statusStyle(s domain.PlanStatus) lipgloss.Style {
	switch s {
	case domain.PlanDone:
		return completedStyle
	case domain.PlanInProgress:
		return inProgressStyle
	case domain.PlanFailed:
		return warningStyle
	default:
		return dimmedStyle
	}
}

// View renders a header with the project root, the plan table above a
// ledger-tail panel, and a status bar showing the last refresh time or
// refresh error (if any).
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder

	title := fmt.Sprintf(" taskmaster-longrun │ %s │ tasks: %d ", m.projectRoot, len(m.rows))
	b.WriteString(headerStyle.Width(m.width).Render(title))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Plan"))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderPlanTable()))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Ledger (recent)"))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderLedgerTail()))
	b.WriteString("\n\n")

	status := "press q to quit, r to refresh now"
	if m.lastErr != nil {
		status = fmt.Sprintf("last refresh failed: %v", m.lastErr)
	} else if !m.lastRefresh.IsZero() {
		status = fmt.Sprintf("updated %s │ press q to quit, r to refresh now", m.lastRefresh.Format("15:04:05"))
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(" " + status))

	return b.String()
}

func (m Model) renderPlanTable() string {
	if len(m.rows) == 0 {
		return dimmedStyle.Render("no tasks")
	}

	var b strings.Builder
	for _, r := range m.rows {
		line := fmt.Sprintf("%-4d %-40s %-12s retries=%d", r.RowID, truncate(r.Title, 40), r.Status, r.RetryCount)
		b.WriteString(statusStyle(r.Status).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderLedgerTail() string {
	if len(m.ledgerTail) == 0 {
		return dimmedStyle.Render("no ledger activity yet")
	}

	var b strings.Builder
	for _, e := range m.ledgerTail {
		line := fmt.Sprintf("%s  %-24s attempt=%-3d %-12s", e.Timestamp.Format("15:04:05"), truncate(e.TaskID, 24), e.Attempt, e.Status)
		b.WriteString(ledgerStyle(e.Status).Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func ledgerStyle(s domain.LedgerStatus) lipgloss.Style {
	switch s {
	case domain.LedgerDone:
		return completedStyle
	case domain.LedgerInProgress:
		return inProgressStyle
	case domain.LedgerFailed:
		return warningStyle
	default:
		return dimmedStyle
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
