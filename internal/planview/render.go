package planview

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

// quoteCell applies spec §4.G's rendering rule: embedded newlines become
// spaces, then the cell is quoted iff it contains a comma or a double
// quote, with embedded quotes doubled. This is a narrower rule than
// encoding/csv's RFC 4180 writer (which preserves embedded newlines inside
// quotes rather than collapsing them), so it is hand-rolled rather than
// routed through the stdlib csv package.
func quoteCell(s string) string {
	flat := strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", " "), "\n", " ")
	if strings.ContainsAny(flat, "\",") {
		return `"` + strings.ReplaceAll(flat, `"`, `""`) + `"`
	}
	return flat
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// RenderFull renders the full-schema CSV: id,task,status,acceptance_criteria,
// validation_command,completed_at,retry_count,notes.
func RenderFull(rows []domain.PlanRow) string {
	var b strings.Builder
	b.WriteString("id,task,status,acceptance_criteria,validation_command,completed_at,retry_count,notes\n")
	for _, r := range rows {
		cells := []string{
			strconv.Itoa(r.RowID),
			r.DisplayID,
			string(r.Status),
			r.AcceptanceCriteria,
			r.ValidationCommand,
			formatTime(r.CompletedAt),
			strconv.Itoa(r.RetryCount),
			r.Notes,
		}
		writeRow(&b, cells)
	}
	return b.String()
}

// RenderLite renders the lite-schema CSV: id,task,status,completed_at,notes.
func RenderLite(rows []domain.PlanRow) string {
	var b strings.Builder
	b.WriteString("id,task,status,completed_at,notes\n")
	for _, r := range rows {
		status := LiteStatus(r.Status)
		cells := []string{
			strconv.Itoa(r.RowID),
			r.DisplayID,
			string(status),
			formatTime(r.CompletedAt),
			r.Notes,
		}
		writeRow(&b, cells)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteCell(c))
	}
	b.WriteByte('\n')
}

// taskMapEntry is one row of the full-mode task-map side file.
type taskMapEntry struct {
	RowID        int      `json:"rowId"`
	TaskID       string   `json:"taskId"`
	Title        string   `json:"title"`
	Dependencies []string `json:"dependencies"`
}

type taskMap struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Rows        []taskMapEntry `json:"rows"`
}

// RenderTaskMap renders the full-mode task-map JSON document.
func RenderTaskMap(rows []domain.PlanRow, now time.Time) ([]byte, error) {
	m := taskMap{GeneratedAt: now.UTC()}
	for _, r := range rows {
		deps := r.Dependencies
		if deps == nil {
			deps = []string{}
		}
		m.Rows = append(m.Rows, taskMapEntry{
			RowID:        r.RowID,
			TaskID:       r.TaskID,
			Title:        r.Title,
			Dependencies: deps,
		})
	}
	return json.MarshalIndent(m, "", "  ")
}

// SyncPlan renders and writes the plan (and, in full mode, the task-map)
// to paths, per spec §4.G/§4.H. It is the operation the Runner Loop calls
// after every task transition.
func SyncPlan(tasks []*domain.Task, checkpoint *domain.CheckpointState, paths domain.SessionPaths, now time.Time) error {
	rows := Project(tasks, checkpoint, now)

	var planBody string
	if paths.Mode == domain.ModeLite {
		planBody = RenderLite(rows)
	} else {
		planBody = RenderFull(rows)
	}
	if err := os.MkdirAll(filepath.Dir(paths.PlanFile), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(paths.PlanFile, []byte(planBody), 0644); err != nil {
		return err
	}

	if paths.Mode != domain.ModeFull {
		return nil
	}

	mapData, err := RenderTaskMap(rows, now)
	if err != nil {
		return err
	}
	return os.WriteFile(paths.TaskMapFile, mapData, 0644)
}
