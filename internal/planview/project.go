// Package planview renders the tabular plan projection and task-map side
// files from the current task list and checkpoint (spec §4.G). The plan
// is a view, not a source of truth: it is rewritten in full after every
// runner transition, the same way the teacher's internal/sync package
// rewrites plans/README.md wholesale from current task state rather than
// patching it in place.
package planview

import (
	"fmt"
	"strings"
	"time"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

// flatten walks tasks in order, emitting each task then its subtasks in
// order, synthesizing subtask ids/dependencies per spec §4.G.
func flatten(tasks []*domain.Task) []*domain.Task {
	var out []*domain.Task
	for _, t := range tasks {
		out = append(out, t)
		for _, sub := range t.Subtasks {
			synthesized := &domain.Task{
				ID:           t.ID + "." + sub.ID,
				Title:        sub.Title,
				Description:  sub.Description,
				Details:      sub.Details,
				TestStrategy: sub.TestStrategy,
				Status:       sub.Status,
				DependsOn:    rewriteSiblingDeps(t.ID, sub.DependsOn),
			}
			out = append(out, synthesized)
		}
	}
	return out
}

// rewriteSiblingDeps rewrites a subtask dependency that contains no "." as
// a sibling reference "<parentId>.<dep>", leaving already-qualified
// dependencies untouched.
func rewriteSiblingDeps(parentID string, deps []string) []string {
	out := make([]string, len(deps))
	for i, dep := range deps {
		if strings.Contains(dep, ".") {
			out[i] = dep
		} else {
			out[i] = parentID + "." + dep
		}
	}
	return out
}

// Project computes the dense-numbered plan rows for tasks against
// checkpoint, per the status-precedence table in spec §4.G.
func Project(tasks []*domain.Task, checkpoint *domain.CheckpointState, now time.Time) []domain.PlanRow {
	flat := flatten(tasks)
	rows := make([]domain.PlanRow, 0, len(flat))
	for i, t := range flat {
		status := projectStatus(t, checkpoint)
		row := domain.PlanRow{
			RowID:              i + 1,
			DisplayID:          fmt.Sprintf("%s: %s", t.ID, t.Title),
			TaskID:             t.ID,
			Title:              t.Title,
			Status:             status,
			AcceptanceCriteria: t.TestStrategy,
			ValidationCommand:  domain.ValidationCommandPlaceholder,
			RetryCount:         checkpoint.Attempts[t.ID],
			Dependencies:       t.DependsOn,
		}
		if status == domain.PlanDone {
			ts := now
			row.CompletedAt = &ts
		}
		if checkpoint.IsBlocked(t.ID) {
			row.Notes = "blocked by retry limit"
		}
		rows = append(rows, row)
	}
	return rows
}

func projectStatus(t *domain.Task, checkpoint *domain.CheckpointState) domain.PlanStatus {
	switch {
	case checkpoint.IsDone(t.ID):
		return domain.PlanDone
	case checkpoint.IsBlocked(t.ID):
		return domain.PlanFailed
	case t.Status == domain.StatusDone || t.Status == domain.StatusCompleted:
		return domain.PlanDone
	case t.Status == domain.StatusInProgress:
		return domain.PlanInProgress
	case t.Status == domain.StatusBlocked || t.Status == domain.StatusCancelled || t.Status == domain.StatusDeferred:
		return domain.PlanFailed
	default:
		return domain.PlanTODO
	}
}

// LiteStatus collapses a full-schema status to the two-value lite schema:
// DONE stays DONE, everything else becomes TODO.
func LiteStatus(full domain.PlanStatus) domain.PlanStatus {
	if full == domain.PlanDone {
		return domain.PlanDone
	}
	return domain.PlanTODO
}
