package runexec

import "fmt"

// Options controls command assembly and the timer bounds, mirroring
// spec §4.D's executor options.
type Options struct {
	Executable        string // defaults to "codex"
	FullAuto          *bool  // defaults to true
	SkipGitRepoCheck  *bool  // defaults to true
	Model             string
	ReasoningEffort   string
	IdleTimeoutMs     int64 // <=0 disables
	HardTimeoutMs     int64 // <=0 disables
	TerminateOnResult *bool // defaults to true
}

const resultGraceMs = 1500
const forceKillGraceMs = 5000
const minTimerMs = 1000

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func clampTimerMs(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	if ms < minTimerMs {
		return minTimerMs
	}
	return ms
}

func executableOr(o Options) string {
	if o.Executable == "" {
		return "codex"
	}
	return o.Executable
}

// BuildArgs assembles the executor's argv (excluding the executable name
// itself), per spec §4.D's ordering rule.
func BuildArgs(o Options, prompt string) []string {
	args := []string{"exec"}
	if boolOr(o.FullAuto, true) {
		args = append(args, "--full-auto")
	}
	if boolOr(o.SkipGitRepoCheck, true) {
		args = append(args, "--skip-git-repo-check")
	}
	if o.Model != "" {
		args = append(args, "-m", o.Model)
	}
	if o.ReasoningEffort != "" {
		args = append(args, "--config", fmt.Sprintf("model_reasoning_effort=%q", o.ReasoningEffort))
	}
	args = append(args, prompt)
	return args
}
