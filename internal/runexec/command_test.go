package runexec

import (
	"reflect"
	"testing"
)

func TestBuildArgs_Defaults(t *testing.T) {
	got := BuildArgs(Options{}, "do the thing")
	want := []string{"exec", "--full-auto", "--skip-git-repo-check", "do the thing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() = %v, want %v", got, want)
	}
}

func TestBuildArgs_DisablingFlags(t *testing.T) {
	f := false
	got := BuildArgs(Options{FullAuto: &f, SkipGitRepoCheck: &f}, "p")
	want := []string{"exec", "p"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() = %v, want %v", got, want)
	}
}

func TestBuildArgs_ModelAndReasoningEffort(t *testing.T) {
	got := BuildArgs(Options{Model: "gpt-5", ReasoningEffort: "high"}, "p")
	want := []string{"exec", "--full-auto", "--skip-git-repo-check", "-m", "gpt-5", "--config", `model_reasoning_effort="high"`, "p"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs() = %v, want %v", got, want)
	}
}

func TestExecutableOr_DefaultsToCodex(t *testing.T) {
	if got := executableOr(Options{}); got != "codex" {
		t.Errorf("executableOr() = %q, want codex", got)
	}
}

func TestExecutableOr_Override(t *testing.T) {
	if got := executableOr(Options{Executable: "claude"}); got != "claude" {
		t.Errorf("executableOr() = %q, want claude", got)
	}
}

func TestClampTimerMs(t *testing.T) {
	tests := []struct {
		in   int64
		want int64
	}{
		{0, 0},
		{-5, 0},
		{500, 1000},
		{5000, 5000},
	}
	for _, tt := range tests {
		if got := clampTimerMs(tt.in); got != tt.want {
			t.Errorf("clampTimerMs(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
