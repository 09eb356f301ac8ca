// Package domain holds the data types shared across the runner: tasks read
// from the external task store, and the records the runner itself persists
// (checkpoint, ledger, parsed sentinel results, plan rows).
package domain

import "strings"

// TaskStatus is the lifecycle state of a task in the external task store.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
	StatusCancelled  TaskStatus = "cancelled"
	StatusDeferred   TaskStatus = "deferred"
	StatusReview     TaskStatus = "review"
)

// Task is a unit of work drawn from the task graph. IDs may be hierarchical
// ("3.2" for subtask 2 of task 3); the runner treats the ID as an opaque
// string and never parses it outside of the plan projection's subtask
// synthesis (internal/planview).
type Task struct {
	ID           string
	Title        string
	Description  string
	Details      string
	TestStrategy string
	DependsOn    []string
	Status       TaskStatus
	Subtasks     []*Task
}

// DependsOnJoined returns a comma-joined dependency list, or "none" when
// there are no dependencies, matching the prompt contract in spec §4.D.
func (t *Task) DependsOnJoined() string {
	if len(t.DependsOn) == 0 {
		return "none"
	}
	return strings.Join(t.DependsOn, ",")
}

// IsTerminal reports whether status represents a settled (non-actionable)
// state from the runner's perspective.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	default:
		return false
	}
}
