package main

import (
	"testing"

	"github.com/hochfrequenz/taskmaster-longrun/internal/config"
	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
)

func TestResolvePaths_DefaultsToFullMode(t *testing.T) {
	cfg := config.Default()
	paths, err := resolvePaths(cfg, t.TempDir())
	if err != nil {
		t.Fatalf("resolvePaths: %v", err)
	}
	if paths.Mode != domain.ModeFull {
		t.Errorf("Mode = %v, want full", paths.Mode)
	}
}

func TestResolvePaths_ConfigModeLiteSelectsLite(t *testing.T) {
	cfg := config.Default()
	cfg.General.Mode = "lite"
	paths, err := resolvePaths(cfg, t.TempDir())
	if err != nil {
		t.Fatalf("resolvePaths: %v", err)
	}
	if paths.Mode != domain.ModeLite {
		t.Errorf("Mode = %v, want lite", paths.Mode)
	}
}

func TestResolvePaths_ConfigProjectRootOverridesFlagRoot(t *testing.T) {
	cfg := config.Default()
	cfg.General.ProjectRoot = t.TempDir()
	flagRoot := t.TempDir()

	paths, err := resolvePaths(cfg, flagRoot)
	if err != nil {
		t.Fatalf("resolvePaths: %v", err)
	}
	if paths.ProjectRoot != cfg.General.ProjectRoot {
		t.Errorf("ProjectRoot = %q, want config value %q", paths.ProjectRoot, cfg.General.ProjectRoot)
	}
}

func TestBuildExecOptions_ConvertsSecondsToMilliseconds(t *testing.T) {
	cfg := config.Default()
	cfg.Timeouts.IdleSeconds = 30
	cfg.Timeouts.HardSeconds = 600
	cfg.Agent.Command = "codex"

	opts := buildExecOptions(cfg)
	if opts.Executable != "codex" {
		t.Errorf("Executable = %q, want codex", opts.Executable)
	}
	if opts.IdleTimeoutMs != 30_000 {
		t.Errorf("IdleTimeoutMs = %d, want 30000", opts.IdleTimeoutMs)
	}
	if opts.HardTimeoutMs != 600_000 {
		t.Errorf("HardTimeoutMs = %d, want 600000", opts.HardTimeoutMs)
	}
}

func TestOpenTaskStore_RequiresConfiguredPath(t *testing.T) {
	cfg := config.Default()
	if _, err := openTaskStore(cfg); err == nil {
		t.Error("expected an error when task_store_path is unset")
	}
}
