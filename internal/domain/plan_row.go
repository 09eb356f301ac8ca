package domain

import "time"

// PlanStatus is the projected status shown in the plan file (spec §3, §4.G).
type PlanStatus string

const (
	PlanTODO       PlanStatus = "TODO"
	PlanInProgress PlanStatus = "IN_PROGRESS"
	PlanDone       PlanStatus = "DONE"
	PlanFailed     PlanStatus = "FAILED"
)

// ValidationCommandPlaceholder is the constant placeholder used in the full
// plan schema's validation_command column (spec §3).
const ValidationCommandPlaceholder = "echo SKIP"

// PlanRow is one projected row of the plan file.
type PlanRow struct {
	RowID                int
	DisplayID            string
	TaskID               string
	Title                string
	Status               PlanStatus
	AcceptanceCriteria   string
	ValidationCommand    string
	CompletedAt          *time.Time
	RetryCount           int
	Notes                string
	Dependencies         []string
}
