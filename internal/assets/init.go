package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runerr"
)

// FileState classifies how InitAssets touched a file.
type FileState string

const (
	StateCreated FileState = "created"
	StateUpdated FileState = "updated"
	StateSkipped FileState = "skipped"
)

// Options configures a single InitAssets call.
type Options struct {
	AgentsMode    domain.AgentsMode
	Fetcher       TemplateFetcher
	DisableRemote bool
}

// Result is the classification of every file InitAssets touched, keyed by
// path relative to the project root.
type Result struct {
	Files map[string]FileState
}

func newResult() *Result {
	return &Result{Files: make(map[string]FileState)}
}

func (r *Result) record(root, path string, state FileState) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	r.Files[filepath.ToSlash(rel)] = state
}

// InitAssets guarantees every asset spec §4.B names exists, idempotently,
// and reports what it touched.
func InitAssets(paths domain.SessionPaths, opts Options) (*Result, error) {
	result := newResult()

	if err := ensureSessionDir(paths, result); err != nil {
		return nil, err
	}
	if err := ensureGitignore(paths, result); err != nil {
		return nil, err
	}
	if err := ensureAgentContext(paths, opts, result); err != nil {
		return nil, err
	}
	if err := ensureSkillFile(paths, opts, result); err != nil {
		return nil, err
	}
	if err := ensureSkillAgentFile(paths, opts, result); err != nil {
		return nil, err
	}
	if paths.Mode == domain.ModeFull {
		if err := ensureTemplateIfMissing(paths, paths.SpecFile, "spec", result); err != nil {
			return nil, err
		}
		if err := ensureTemplateIfMissing(paths, paths.ProgressFile, "progress", result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func ensureSessionDir(paths domain.SessionPaths, result *Result) error {
	_, err := os.Stat(paths.SessionDir)
	existed := err == nil
	if err := os.MkdirAll(paths.SessionDir, 0755); err != nil {
		return &runerr.SetupError{Path: paths.SessionDir, Reason: "creating session directory", Err: err}
	}
	if err := os.MkdirAll(paths.LogsDir, 0755); err != nil {
		return &runerr.SetupError{Path: paths.LogsDir, Reason: "creating logs directory", Err: err}
	}
	if !existed {
		result.record(paths.ProjectRoot, paths.SessionDir, StateCreated)
	} else {
		result.record(paths.ProjectRoot, paths.SessionDir, StateSkipped)
	}
	return nil
}

func ensureGitignore(paths domain.SessionPaths, result *Result) error {
	gitignorePath := filepath.Join(paths.SessionDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		result.record(paths.ProjectRoot, gitignorePath, StateSkipped)
		return nil
	}
	content := "*\n!.gitignore\n"
	if err := os.WriteFile(gitignorePath, []byte(content), 0644); err != nil {
		return &runerr.SetupError{Path: gitignorePath, Reason: "writing .gitignore", Err: err}
	}
	result.record(paths.ProjectRoot, gitignorePath, StateCreated)
	return nil
}

func ensureAgentContext(paths domain.SessionPaths, opts Options, result *Result) error {
	path := paths.AgentContext
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(hookBlock()), 0644); err != nil {
			return &runerr.SetupError{Path: path, Reason: "creating agent context file", Err: err}
		}
		result.record(paths.ProjectRoot, path, StateCreated)
		return nil
	}
	if err != nil {
		return &runerr.SetupError{Path: path, Reason: "reading agent context file", Err: err}
	}

	content := string(data)
	switch classifyMarkers(content, hookStart, hookEnd) {
	case markersBoth:
		result.record(paths.ProjectRoot, path, StateSkipped)
		return nil
	case markersPartial:
		return &runerr.SetupError{Path: path, Reason: "corrupt markers: exactly one of TM-LONGRUN-START/END present"}
	default: // markersNone
		switch opts.AgentsMode {
		case domain.AgentsSkip:
			result.record(paths.ProjectRoot, path, StateSkipped)
			return nil
		case domain.AgentsFail:
			return &runerr.SetupError{Path: path, Reason: "hook missing and agentsMode=fail"}
		default: // append
			updated := strings.TrimRight(content, "\n") + "\n\n" + hookBlock()
			if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
				return &runerr.SetupError{Path: path, Reason: "appending hook block", Err: err}
			}
			result.record(paths.ProjectRoot, path, StateUpdated)
			return nil
		}
	}
}

func ensureSkillFile(paths domain.SessionPaths, opts Options, result *Result) error {
	path := paths.SkillFile
	data, err := os.ReadFile(path)
	if err == nil {
		content := string(data)
		if looksLikeUpstreamSkill(content) && classifyMarkers(content, integrationStart, integrationEnd) == markersBoth {
			result.record(paths.ProjectRoot, path, StateSkipped)
			return nil
		}
	} else if !os.IsNotExist(err) {
		return &runerr.SetupError{Path: path, Reason: "reading skill file", Err: err}
	}
	existed := err == nil

	upstream, ferr := resolveTemplate(opts.Fetcher, opts.DisableRemote, "skill")
	if ferr != nil {
		return &runerr.SetupError{Path: path, Reason: "fetching skill template", Err: ferr}
	}

	stripped := stripBlock(upstream, integrationStart, integrationEnd)
	final := strings.TrimRight(stripped, "\n") + "\n\n" + integrationBlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &runerr.SetupError{Path: path, Reason: "creating skill directory", Err: err}
	}
	if err := os.WriteFile(path, []byte(final), 0644); err != nil {
		return &runerr.SetupError{Path: path, Reason: "writing skill file", Err: err}
	}
	if existed {
		result.record(paths.ProjectRoot, path, StateUpdated)
	} else {
		result.record(paths.ProjectRoot, path, StateCreated)
	}
	return nil
}

func ensureSkillAgentFile(paths domain.SessionPaths, opts Options, result *Result) error {
	path := paths.SkillAgentFile
	data, err := os.ReadFile(path)
	if err == nil && looksLikeUpstreamAgentRules(string(data)) {
		result.record(paths.ProjectRoot, path, StateSkipped)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return &runerr.SetupError{Path: path, Reason: "reading skill agent file", Err: err}
	}
	existed := err == nil

	content, ferr := resolveTemplate(opts.Fetcher, opts.DisableRemote, "agent-rules")
	if ferr != nil {
		return &runerr.SetupError{Path: path, Reason: "fetching agent rules template", Err: ferr}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &runerr.SetupError{Path: path, Reason: "creating skill directory", Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &runerr.SetupError{Path: path, Reason: "writing skill agent file", Err: err}
	}
	if existed {
		result.record(paths.ProjectRoot, path, StateUpdated)
	} else {
		result.record(paths.ProjectRoot, path, StateCreated)
	}
	return nil
}

func ensureTemplateIfMissing(paths domain.SessionPaths, path, name string, result *Result) error {
	if _, err := os.Stat(path); err == nil {
		result.record(paths.ProjectRoot, path, StateSkipped)
		return nil
	}
	content, err := embeddedTemplate(name)
	if err != nil {
		return fmt.Errorf("loading embedded %s template: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &runerr.SetupError{Path: path, Reason: fmt.Sprintf("writing %s template", name), Err: err}
	}
	result.record(paths.ProjectRoot, path, StateCreated)
	return nil
}
