// Package sentinel scans an agent's captured output for the RESULT: line
// contract (spec §4.C, §6), the same backward-scan-for-a-JSON-tail-message
// shape as the teacher's internal/executor/agent.go parseUsageFromLine and
// extractErrorFromOutput, generalized from a fixed message shape to the
// spec's brace-extraction + tolerant-reparse rule.
package sentinel

import (
	"encoding/json"
	"strings"

	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

const prefix = "RESULT:"

type rawPayload struct {
	Status     string `json:"status"`
	Validation string `json:"validation"`
	Summary    string `json:"summary"`
}

// Extract scans buffer from the last line to the first, returning the
// last (i.e. first found scanning backward) valid ParsedResult, or nil if
// none is found.
func Extract(buffer string) *domain.ParsedResult {
	lines := strings.Split(buffer, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		idx := strings.Index(line, prefix)
		if idx == -1 {
			continue
		}
		payload := strings.TrimSpace(line[idx+len(prefix):])
		result, ok := parsePayload(payload)
		if ok {
			return result
		}
		// Keep scanning earlier lines — this candidate didn't parse.
	}
	return nil
}

func parsePayload(payload string) (*domain.ParsedResult, bool) {
	open := strings.Index(payload, "{")
	end := strings.LastIndex(payload, "}")
	if open == -1 || end == -1 || end < open {
		return nil, false
	}
	fragment := payload[open : end+1]

	var raw rawPayload
	if err := json.Unmarshal([]byte(fragment), &raw); err != nil {
		return nil, false
	}

	status := domain.ResultStatus(strings.ToLower(strings.TrimSpace(raw.Status)))
	if status != domain.ResultDone && status != domain.ResultFailed {
		return nil, false
	}

	return &domain.ParsedResult{
		Status:     status,
		Validation: domain.ParseValidation(raw.Validation),
		Summary:    strings.TrimSpace(raw.Summary),
		Raw:        fragment,
	}, true
}
