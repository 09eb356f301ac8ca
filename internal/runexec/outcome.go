package runexec

import (
	"fmt"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

// Resolution is the {success, note} pair from spec §4.E.
type Resolution struct {
	Success bool
	Note    string
}

// Resolve applies the outcome decision table, evaluated top-down: a parsed
// sentinel outranks timeouts, which outrank the exit-code fallback.
func Resolve(outcome domain.ExecOutcome) Resolution {
	if outcome.Result != nil {
		r := outcome.Result
		if r.Status == domain.ResultDone && r.Validation != domain.ValidationFail {
			note := fmt.Sprintf("parsed_result status=%s validation=%s", r.Status, r.Validation)
			if r.Summary != "" {
				note += " summary=" + r.Summary
			}
			return Resolution{Success: true, Note: note}
		}
		note := fmt.Sprintf("parsed_result status=%s validation=%s", r.Status, r.Validation)
		if r.Summary != "" {
			note += " summary=" + r.Summary
		}
		return Resolution{Success: false, Note: note}
	}

	if outcome.TimedOut {
		bound := int64(0)
		if outcome.TimeoutBoundMs != nil {
			bound = *outcome.TimeoutBoundMs
		}
		return Resolution{
			Success: false,
			Note:    fmt.Sprintf("executor %s timeout after %dms", outcome.TimeoutKind, bound),
		}
	}

	if outcome.ExitCode != nil && *outcome.ExitCode == 0 {
		return Resolution{Success: true, Note: "exit_code_fallback success (missing RESULT)"}
	}

	code := -1
	if outcome.ExitCode != nil {
		code = *outcome.ExitCode
	}
	signal := ""
	if outcome.Signal != nil {
		signal = *outcome.Signal
	}
	return Resolution{
		Success: false,
		Note:    fmt.Sprintf("executor failed exitCode=%d signal=%s", code, signal),
	}
}
