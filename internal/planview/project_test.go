package planview

import (
	"testing"
	"time"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

func sampleTasks() []*domain.Task {
	return []*domain.Task{
		{
			ID: "1", Title: "parent", Status: domain.StatusPending,
			Subtasks: []*domain.Task{
				{ID: "1", Title: "sub one", Status: domain.StatusPending, DependsOn: []string{"2"}},
				{ID: "2", Title: "sub two", Status: domain.StatusPending, DependsOn: []string{"3.1"}},
			},
		},
		{ID: "2", Title: "second", Status: domain.StatusInProgress, DependsOn: []string{"1"}},
	}
}

func TestProject_DenseRowNumbering(t *testing.T) {
	rows := Project(sampleTasks(), domain.NewCheckpointState(), time.Now())
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4 (1 parent + 2 subtasks + 1 task)", len(rows))
	}
	for i, r := range rows {
		if r.RowID != i+1 {
			t.Errorf("row %d has RowID %d, want %d", i, r.RowID, i+1)
		}
	}
}

func TestProject_SubtaskIDsAreSynthesized(t *testing.T) {
	rows := Project(sampleTasks(), domain.NewCheckpointState(), time.Now())
	if rows[1].TaskID != "1.1" {
		t.Errorf("TaskID = %q, want 1.1", rows[1].TaskID)
	}
	if rows[2].TaskID != "1.2" {
		t.Errorf("TaskID = %q, want 1.2", rows[2].TaskID)
	}
}

func TestProject_SiblingDependencyRewritten(t *testing.T) {
	rows := Project(sampleTasks(), domain.NewCheckpointState(), time.Now())
	// sub one (now 1.1) depends on "2" with no dot -> rewritten to "1.2"
	if len(rows[1].Dependencies) != 1 || rows[1].Dependencies[0] != "1.2" {
		t.Errorf("Dependencies = %v, want [1.2]", rows[1].Dependencies)
	}
	// sub two (now 1.2) depends on "3.1" which already has a dot -> untouched
	if len(rows[2].Dependencies) != 1 || rows[2].Dependencies[0] != "3.1" {
		t.Errorf("Dependencies = %v, want [3.1]", rows[2].Dependencies)
	}
}

func TestProject_StatusPrecedence_CheckpointDoneWins(t *testing.T) {
	cp := domain.NewCheckpointState()
	cp.MarkDone("2")
	rows := Project(sampleTasks(), cp, time.Now())

	var row *domain.PlanRow
	for i := range rows {
		if rows[i].TaskID == "2" {
			row = &rows[i]
		}
	}
	if row == nil {
		t.Fatal("task 2 not found in projection")
	}
	if row.Status != domain.PlanDone {
		t.Errorf("Status = %q, want DONE (checkpoint.done should outrank in-progress)", row.Status)
	}
	if row.CompletedAt == nil {
		t.Error("CompletedAt = nil, want set for DONE row")
	}
}

func TestProject_BlockedSetsNotes(t *testing.T) {
	cp := domain.NewCheckpointState()
	cp.MarkAttempt("2")
	cp.MarkBlocked("2")
	rows := Project(sampleTasks(), cp, time.Now())

	var row *domain.PlanRow
	for i := range rows {
		if rows[i].TaskID == "2" {
			row = &rows[i]
		}
	}
	if row.Status != domain.PlanFailed {
		t.Errorf("Status = %q, want FAILED for blocked task", row.Status)
	}
	if row.Notes != "blocked by retry limit" {
		t.Errorf("Notes = %q, want blocked by retry limit", row.Notes)
	}
}

func TestProject_UnderlyingStatusFallsThroughPrecedence(t *testing.T) {
	tasks := []*domain.Task{
		{ID: "1", Title: "t", Status: domain.StatusCancelled},
	}
	rows := Project(tasks, domain.NewCheckpointState(), time.Now())
	if rows[0].Status != domain.PlanFailed {
		t.Errorf("Status = %q, want FAILED for cancelled task", rows[0].Status)
	}
}

func TestLiteStatus_CollapsesToTwoValues(t *testing.T) {
	if got := LiteStatus(domain.PlanDone); got != domain.PlanDone {
		t.Errorf("LiteStatus(DONE) = %q, want DONE", got)
	}
	for _, s := range []domain.PlanStatus{domain.PlanTODO, domain.PlanInProgress, domain.PlanFailed} {
		if got := LiteStatus(s); got != domain.PlanTODO {
			t.Errorf("LiteStatus(%q) = %q, want TODO", s, got)
		}
	}
}
