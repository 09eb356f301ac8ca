// Package runexec implements the Subprocess Executor (spec §4.D) and the
// Outcome Resolver (spec §4.E): command assembly, prompt assembly, the
// timer-driven process lifecycle, and the success/note decision table.
package runexec

import (
	"fmt"
	"strings"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/session"
)

const promptTemplate = `@%s
@%s
@%s

Implement only the following task. Do not work ahead on other tasks.

You may update the plan and progress side files in the session directory,
but you must not modify the external task store directly — the runner
updates task status for you based on your result.

When you are completely finished, emit exactly one line in this format and
then stop immediately:

RESULT: {"status":"done|failed","validation":"pass|fail|unknown","summary":"..."}

Task id: %s
Title: %s
Description: %s
Details: %s
Test strategy: %s
Dependencies: %s
`

// BuildPrompt constructs the prompt embedded as the executor's final
// argument, per spec §4.D.
func BuildPrompt(task *domain.Task, paths domain.SessionPaths) string {
	return fmt.Sprintf(promptTemplate,
		session.RelPosix(paths.ProjectRoot, paths.AgentContext),
		session.RelPosix(paths.ProjectRoot, paths.SkillAgentFile),
		session.RelPosix(paths.ProjectRoot, paths.SkillFile),
		task.ID,
		task.Title,
		orNone(task.Description),
		orNone(task.Details),
		orNone(task.TestStrategy),
		task.DependsOnJoined(),
	)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
