package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles only the three things a read-only dashboard needs: quit,
// window resize, and the refresh tick. There are no tabs, modals, or
// selectable rows to navigate, since nothing here is actionable.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.loadSnapshot(), nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m = m.loadSnapshot()
		return m, tickCmd()
	}

	return m, nil
}
