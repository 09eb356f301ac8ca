// Package session derives every file path the runner touches from a
// project root plus a small set of options, the way the teacher derives
// worktree and config paths from a single root (internal/executor/worktree.go,
// internal/config.Default()) rather than letting each component build its
// own path.
package session

import (
	"os"
	"path/filepath"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

// Options configures path resolution (spec §4.A).
type Options struct {
	ProjectRoot       string
	Mode              domain.Mode
	AgentContextPath  string // override; relative paths resolve against ProjectRoot
	SkillPath         string // override
	SessionDirPath    string // override
}

const (
	defaultSessionDirRel = ".codex-tasks/taskmaster-longrun"
	defaultSkillPathRel  = ".codex/skills/taskmaster-longrun/SKILL.md"
)

// Resolve computes a fully-absolute, canonical SessionPaths from opts.
func Resolve(opts Options) (domain.SessionPaths, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return domain.SessionPaths{}, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = domain.ModeFull
	}

	sessionDir := resolveOverride(root, opts.SessionDirPath, defaultSessionDirRel)
	skillFile := resolveOverride(root, opts.SkillPath, defaultSkillPathRel)
	skillAgentFile := filepath.Join(filepath.Dir(skillFile), "AGENTS.md")

	agentContext := resolveAgentContext(root, opts.AgentContextPath)

	var planFile string
	if mode == domain.ModeLite {
		planFile = filepath.Join(root, "TODO.csv")
	} else {
		planFile = filepath.Join(sessionDir, "taskmaster-plan.csv")
	}

	paths := domain.SessionPaths{
		ProjectRoot:    root,
		AgentContext:   agentContext,
		SkillAgentFile: skillAgentFile,
		SkillFile:      skillFile,
		SessionDir:     sessionDir,
		SpecFile:       filepath.Join(sessionDir, "SPEC.md"),
		ProgressFile:   filepath.Join(sessionDir, "PROGRESS.md"),
		PlanFile:       planFile,
		TaskMapFile:    filepath.Join(sessionDir, "taskmaster-map.json"),
		CheckpointFile: filepath.Join(sessionDir, "checkpoint.json"),
		LedgerFile:     filepath.Join(sessionDir, "ledger.jsonl"),
		LogsDir:        filepath.Join(sessionDir, "logs"),
		Mode:           mode,
	}
	return paths, nil
}

func resolveOverride(root, override, defaultRel string) string {
	if override == "" {
		return filepath.Join(root, defaultRel)
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(root, override)
}

// resolveAgentContext implements the AGENTS.md / agent.md default-selection
// rule: an explicit override wins; otherwise prefer AGENTS.md if it exists,
// else agent.md if it exists, else fall back to AGENTS.md (to be created).
func resolveAgentContext(root, override string) string {
	if override != "" {
		if filepath.IsAbs(override) {
			return override
		}
		return filepath.Join(root, override)
	}

	agentsMd := filepath.Join(root, "AGENTS.md")
	if _, err := os.Stat(agentsMd); err == nil {
		return agentsMd
	}
	lowerMd := filepath.Join(root, "agent.md")
	if _, err := os.Stat(lowerMd); err == nil {
		return lowerMd
	}
	return agentsMd
}

// ToPosix converts an absolute path to a forward-slash form, used when
// embedding paths in prompts or comparing across platforms (spec §4.A).
func ToPosix(path string) string {
	return filepath.ToSlash(path)
}

// RelPosix returns path relative to base in forward-slash form; if it
// cannot be made relative, the absolute posix form is returned.
func RelPosix(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return ToPosix(path)
	}
	return ToPosix(rel)
}
