package assets

import (
	"io"
	"net/http"
	"time"
)

// TemplateFetcher retrieves the upstream content for a named template
// ("skill" or "agent-rules"), or returns an error to fall back to the
// embedded deterministic literal. Spec §4.B treats upstream fetching as an
// explicit out-of-scope external collaborator; this is the pluggable seam.
type TemplateFetcher interface {
	Fetch(name string) (string, error)
}

// HTTPFetcher fetches templates from a base URL, one GET per named
// template (baseURL + "/" + name + ".md").
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a bounded-timeout client,
// following the teacher's pattern of never using http.DefaultClient
// un-timed-out for network calls that gate local file writes.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{BaseURL: baseURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (f *HTTPFetcher) Fetch(name string) (string, error) {
	resp, err := f.Client.Get(f.BaseURL + "/" + name + ".md")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &fetchStatusError{name: name, status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type fetchStatusError struct {
	name   string
	status int
}

func (e *fetchStatusError) Error() string {
	return "fetching template " + e.name + ": unexpected status " + http.StatusText(e.status)
}

// fallbackFetcher always returns the embedded literal, used when remote
// fetching is disabled or as the last resort after a fetcher errors.
type fallbackFetcher struct{}

func (fallbackFetcher) Fetch(name string) (string, error) {
	return embeddedTemplate(name)
}

func embeddedTemplate(name string) (string, error) {
	var file string
	switch name {
	case "skill":
		file = "templates/skill.md"
	case "agent-rules":
		file = "templates/agent_rules.md"
	case "spec":
		return "# Spec\n\nDescribe the project's goals, constraints and acceptance criteria\nhere. The runner creates this file once and does not read or write it\nafterwards.\n", nil
	default:
		file = "templates/" + name + ".md"
	}
	data, err := embeddedFS.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resolveTemplate fetches name via fetcher, unless disableRemote is set or
// fetcher is nil, in which case it goes straight to the embedded literal;
// a fetcher error also falls back rather than failing the whole init.
func resolveTemplate(fetcher TemplateFetcher, disableRemote bool, name string) (string, error) {
	if disableRemote || fetcher == nil {
		return embeddedTemplate(name)
	}
	content, err := fetcher.Fetch(name)
	if err != nil {
		return embeddedTemplate(name)
	}
	return content, nil
}
