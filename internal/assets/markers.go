package assets

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	hookStart = "<!-- TM-LONGRUN-START -->"
	hookEnd   = "<!-- TM-LONGRUN-END -->"

	integrationStart = "<!-- TM-INTEGRATION-START -->"
	integrationEnd   = "<!-- TM-INTEGRATION-END -->"
)

func hookBlock() string {
	return hookStart + "\n" +
		"This project is driven by the taskmaster-longrun runner. Work one task\n" +
		"at a time and always finish with a RESULT: sentinel line.\n" +
		hookEnd + "\n"
}

func integrationBlock() string {
	return integrationStart + "\n" +
		"Integration: this skill is invoked by the taskmaster-longrun runner,\n" +
		"one task per invocation. See AGENTS.md in this directory for the\n" +
		"global rules that apply regardless of skill.\n" +
		integrationEnd + "\n"
}

// markerState classifies a document's relationship to a start/end marker
// pair.
type markerState int

const (
	markersNone markerState = iota
	markersBoth
	markersPartial
)

func classifyMarkers(content, start, end string) markerState {
	hasStart := strings.Contains(content, start)
	hasEnd := strings.Contains(content, end)
	switch {
	case hasStart && hasEnd:
		return markersBoth
	case hasStart != hasEnd:
		return markersPartial
	default:
		return markersNone
	}
}

// stripBlock removes a start/end-delimited block (inclusive) from
// content, if present, returning content unchanged otherwise.
func stripBlock(content, start, end string) string {
	startIdx := strings.Index(content, start)
	if startIdx == -1 {
		return content
	}
	endIdx := strings.Index(content[startIdx:], end)
	if endIdx == -1 {
		return content
	}
	endIdx += startIdx + len(end)
	// Consume a single trailing newline after the block, if present.
	if endIdx < len(content) && content[endIdx] == '\n' {
		endIdx++
	}
	return content[:startIdx] + content[endIdx:]
}

// frontmatter holds the subset of the skill file's YAML header this
// package cares about, mirroring the teacher's loader.go frontmatter
// struct shape.
type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// parseFrontmatter extracts and decodes the `---\n...\n---` YAML block at
// the top of content, if present.
func parseFrontmatter(content string) (*frontmatter, bool) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, false
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return nil, false
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, false
	}
	return &fm, true
}

func looksLikeUpstreamSkill(content string) bool {
	fm, ok := parseFrontmatter(content)
	return ok && fm.Name == "taskmaster-longrun"
}

func looksLikeUpstreamAgentRules(content string) bool {
	return strings.Contains(content, "# Global Agent Rules")
}
