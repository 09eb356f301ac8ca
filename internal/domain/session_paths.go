package domain

// Mode selects the plan-projection schema and which templates the Asset
// Initializer seeds (spec §3, §4.G).
type Mode string

const (
	ModeLite Mode = "lite"
	ModeFull Mode = "full"
)

// AgentsMode controls what the Asset Initializer does when the
// agent-context file exists but carries neither hook marker (spec §4.B).
type AgentsMode string

const (
	AgentsAppend AgentsMode = "append"
	AgentsSkip   AgentsMode = "skip"
	AgentsFail   AgentsMode = "fail"
)

// SessionPaths is every fully-resolved absolute path the runner touches,
// derived once by the Path Resolver (spec §4.A) and threaded through every
// other component — nothing downstream re-derives a path from parts.
type SessionPaths struct {
	ProjectRoot    string
	AgentContext   string
	SkillAgentFile string
	SkillFile      string
	SessionDir     string
	SpecFile       string
	ProgressFile   string
	PlanFile       string
	TaskMapFile    string
	CheckpointFile string
	LedgerFile     string
	LogsDir        string
	Mode           Mode
}
