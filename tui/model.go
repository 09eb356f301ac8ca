// Package tui implements a minimal read-only live dashboard: a plan table
// and a tail of the most recent ledger entries, refreshed on a tick. It
// keeps the teacher's tui package's bubbletea Model/Init/Update/View shape
// and TickMsg refresh loop, trimmed to this repository's much smaller
// domain model — there are no agents, tabs, modals, or PRs here, only one
// task loop and one ledger.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

const refreshInterval = 2 * time.Second

// Snapshot is what Refresh returns on every tick: the current plan
// projection plus the most recent ledger entries.
type Snapshot struct {
	Rows       []domain.PlanRow
	LedgerTail []domain.LedgerEntry
}

// RefreshFunc loads a fresh Snapshot from disk. The dashboard never writes
// to the session; it only ever reads.
type RefreshFunc func() (Snapshot, error)

// ModelConfig configures a new Model.
type ModelConfig struct {
	ProjectRoot string
	Refresh     RefreshFunc
}

// Model is a bubbletea model rendering one plan table and one ledger-tail
// panel. Unlike the teacher's multi-tab dashboard, there is exactly one
// view: there is nothing here to tab between.
type Model struct {
	projectRoot string
	refresh     RefreshFunc

	rows       []domain.PlanRow
	ledgerTail []domain.LedgerEntry
	lastErr    error
	lastRefresh time.Time

	width  int
	height int
}

// NewModel constructs a Model from cfg. Refresh must be non-nil; a nil
// Refresh would leave the dashboard permanently blank.
func NewModel(cfg ModelConfig) Model {
	return Model{
		projectRoot: cfg.ProjectRoot,
		refresh:     cfg.Refresh,
	}
}

// Init kicks off the first tick immediately so the dashboard renders data
// on its very first frame rather than an empty screen.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return TickMsg(time.Now()) }
}

// TickMsg fires on every refresh interval, mirroring the teacher's
// TickMsg/tickCmd pattern exactly.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) loadSnapshot() Model {
	if m.refresh == nil {
		return m
	}
	snap, err := m.refresh()
	m.lastErr = err
	if err == nil {
		m.rows = snap.Rows
		m.ledgerTail = snap.LedgerTail
		m.lastRefresh = time.Now()
	}
	return m
}
