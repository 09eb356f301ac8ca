package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if cfg.Timeouts.IdleSeconds != 120 {
		t.Errorf("IdleSeconds = %d, want 120", cfg.Timeouts.IdleSeconds)
	}
	if cfg.Timeouts.HardSeconds != 1800 {
		t.Errorf("HardSeconds = %d, want 1800", cfg.Timeouts.HardSeconds)
	}
	if cfg.General.Mode != "full" {
		t.Errorf("Mode = %q, want full", cfg.General.Mode)
	}
	if cfg.Assets.AgentsMode != "append" {
		t.Errorf("AgentsMode = %q, want append", cfg.Assets.AgentsMode)
	}
	if cfg.Status.Port != 8787 {
		t.Errorf("Status.Port = %d, want 8787", cfg.Status.Port)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Retry.MaxRetries)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
project_root = "/test/project"
mode = "lite"

[retry]
max_retries = 5
continue_on_failure = true

[timeouts]
idle_seconds = 60
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.ProjectRoot != "/test/project" {
		t.Errorf("ProjectRoot = %q, want /test/project", cfg.General.ProjectRoot)
	}
	if cfg.General.Mode != "lite" {
		t.Errorf("Mode = %q, want lite", cfg.General.Mode)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Retry.MaxRetries)
	}
	if !cfg.Retry.ContinueOnFailure {
		t.Error("ContinueOnFailure = false, want true")
	}
	if cfg.Timeouts.IdleSeconds != 60 {
		t.Errorf("IdleSeconds = %d, want 60", cfg.Timeouts.IdleSeconds)
	}
	// Untouched sections keep their defaults.
	if cfg.Timeouts.HardSeconds != 1800 {
		t.Errorf("HardSeconds = %d, want default 1800", cfg.Timeouts.HardSeconds)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
		{"", ""},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFindLocalConfig(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "sub", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	localConfig := filepath.Join(root, LocalConfigName)
	if err := os.WriteFile(localConfig, []byte("[general]\nproject_root = \"/local\""), 0644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	if err := os.Chdir(subdir); err != nil {
		t.Fatal(err)
	}

	found := FindLocalConfig()
	if found != localConfig {
		t.Errorf("FindLocalConfig() = %q, want %q", found, localConfig)
	}
}

func TestFindLocalConfig_NotFound(t *testing.T) {
	root := t.TempDir()

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}

	if found := FindLocalConfig(); found != "" {
		t.Errorf("FindLocalConfig() = %q, want empty string", found)
	}
}

func TestLoadWithLocalFallback_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	explicitPath := filepath.Join(dir, "explicit.toml")
	content := "[general]\nproject_root = \"/explicit\"\n"
	if err := os.WriteFile(explicitPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithLocalFallback(explicitPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.ProjectRoot != "/explicit" {
		t.Errorf("ProjectRoot = %q, want /explicit", cfg.General.ProjectRoot)
	}
}

func TestLoadWithLocalFallback_NoneFound(t *testing.T) {
	root := t.TempDir()

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithLocalFallback("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Retry.MaxRetries)
	}
}
