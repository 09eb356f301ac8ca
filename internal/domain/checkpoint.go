package domain

import "time"

// CheckpointState is the crash-safe progress record for a session. It is
// rewritten atomically after every task transition (internal/ledger) and
// never holds anything that can't be rebuilt from the ledger plus the task
// store — it is a cache of "where are we", not a source of truth for task
// content.
type CheckpointState struct {
	UpdatedAt      time.Time      `json:"updatedAt"`
	Attempts       map[string]int `json:"attempts"`
	DoneTaskIDs    []string       `json:"doneTaskIds"`
	BlockedTaskIDs []string       `json:"blockedTaskIds"`
	LastTaskID     string         `json:"lastTaskId,omitempty"`

	done    map[string]bool
	blocked map[string]bool
}

// NewCheckpointState returns an empty, freshly-initialized checkpoint.
func NewCheckpointState() *CheckpointState {
	return &CheckpointState{
		Attempts: make(map[string]int),
	}
}

// normalize rebuilds the lookup sets after a JSON decode and fills nil
// fields so callers never need a nil check.
func (c *CheckpointState) normalize() {
	if c.Attempts == nil {
		c.Attempts = make(map[string]int)
	}
	c.done = make(map[string]bool, len(c.DoneTaskIDs))
	for _, id := range c.DoneTaskIDs {
		c.done[id] = true
	}
	c.blocked = make(map[string]bool, len(c.BlockedTaskIDs))
	for _, id := range c.BlockedTaskIDs {
		c.blocked[id] = true
	}
}

// IsDone reports whether id is in the done set.
func (c *CheckpointState) IsDone(id string) bool {
	if c.done == nil {
		c.normalize()
	}
	return c.done[id]
}

// IsBlocked reports whether id is in the blocked set.
func (c *CheckpointState) IsBlocked(id string) bool {
	if c.blocked == nil {
		c.normalize()
	}
	return c.blocked[id]
}

// MarkAttempt increments the attempt counter for id and returns the new
// (post-increment) count. Attempts are monotonically non-decreasing: this
// is the only way the counter is mutated.
func (c *CheckpointState) MarkAttempt(id string) int {
	if c.Attempts == nil {
		c.Attempts = make(map[string]int)
	}
	c.Attempts[id]++
	c.LastTaskID = id
	return c.Attempts[id]
}

// MarkDone adds id to the done set and removes it from the blocked set, if
// present, preserving the done∩blocked=∅ invariant.
func (c *CheckpointState) MarkDone(id string) {
	if c.done == nil {
		c.normalize()
	}
	if !c.done[id] {
		c.done[id] = true
		c.DoneTaskIDs = append(c.DoneTaskIDs, id)
	}
	if c.blocked[id] {
		delete(c.blocked, id)
		c.BlockedTaskIDs = removeString(c.BlockedTaskIDs, id)
	}
}

// MarkBlocked adds id to the blocked set.
func (c *CheckpointState) MarkBlocked(id string) {
	if c.blocked == nil {
		c.normalize()
	}
	if !c.blocked[id] {
		c.blocked[id] = true
		c.BlockedTaskIDs = append(c.BlockedTaskIDs, id)
	}
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// LedgerStatus is the terminal classification of a single attempt, recorded
// in the append-only ledger.
type LedgerStatus string

const (
	LedgerInProgress LedgerStatus = "IN_PROGRESS"
	LedgerDone       LedgerStatus = "DONE"
	LedgerFailed     LedgerStatus = "FAILED"
	LedgerBlocked    LedgerStatus = "BLOCKED"
)

// LedgerEntry is one append-only audit record of a single attempt.
type LedgerEntry struct {
	Timestamp  time.Time    `json:"timestamp"`
	TaskID     string       `json:"taskId"`
	Title      string       `json:"title"`
	Attempt    int          `json:"attempt"`
	Status     LedgerStatus `json:"status"`
	ExitCode   *int         `json:"exitCode"`
	DurationMs int64        `json:"durationMs"`
	LogFile    string       `json:"logFile"`
	Notes      string       `json:"notes,omitempty"`
}
