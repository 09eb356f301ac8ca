// Package config loads the runner's TOML configuration, following the
// teacher's internal/config package: a Default() baseline, a Load() that
// unmarshals onto those defaults, and ExpandPath() for "~/" home-relative
// paths.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LocalConfigName is the filename searched for by FindLocalConfig.
const LocalConfigName = ".taskmaster-longrun.toml"

// Config holds all runner configuration.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Agent    AgentConfig    `toml:"agent"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Retry    RetryConfig    `toml:"retry"`
	Assets   AssetsConfig   `toml:"assets"`
	Status   StatusConfig   `toml:"status"`
	Schedule ScheduleConfig `toml:"schedule"`
}

// GeneralConfig holds project-level settings.
type GeneralConfig struct {
	ProjectRoot   string `toml:"project_root"`
	Mode          string `toml:"mode"` // "full" or "lite"
	SessionDir    string `toml:"session_dir"`
	SkillPath     string `toml:"skill_path"`
	AgentContext  string `toml:"agent_context"`
	TaskStorePath string `toml:"task_store_path"`
}

// AgentConfig describes how the coding-agent subprocess is invoked.
type AgentConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// TimeoutsConfig holds the three timer bounds from spec §4.D.
type TimeoutsConfig struct {
	IdleSeconds      int `toml:"idle_seconds"`
	HardSeconds      int `toml:"hard_seconds"`
	ResultGraceMilli int `toml:"result_grace_milliseconds"`
}

// RetryConfig holds retry/blocking policy.
type RetryConfig struct {
	MaxRetries        int  `toml:"max_retries"`
	ContinueOnFailure bool `toml:"continue_on_failure"`
	MaxTasks          int  `toml:"max_tasks"`
}

// AssetsConfig controls the asset initializer's AGENTS.md handling and
// remote template fetching.
type AssetsConfig struct {
	AgentsMode    string `toml:"agents_mode"` // "append", "skip", "fail"
	DisableRemote bool   `toml:"disable_remote_templates"`
	TemplateURL   string `toml:"template_url"`
}

// StatusConfig holds the optional live status websocket push settings.
type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	Host    string `toml:"host"`
}

// ScheduleConfig holds cron schedule settings for the `schedule` subcommand.
type ScheduleConfig struct {
	Spec string `toml:"spec"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			Mode: "full",
		},
		Agent: AgentConfig{
			Command: "claude",
			Args:    []string{"--print"},
		},
		Timeouts: TimeoutsConfig{
			IdleSeconds:      120,
			HardSeconds:      1800,
			ResultGraceMilli: 1500,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			ContinueOnFailure: false,
			MaxTasks:          0,
		},
		Assets: AssetsConfig{
			AgentsMode: "append",
		},
		Status: StatusConfig{
			Enabled: false,
			Port:    8787,
			Host:    "127.0.0.1",
		},
		Schedule: ScheduleConfig{
			Spec: "@hourly",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults if
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.ProjectRoot = ExpandPath(cfg.General.ProjectRoot)
	cfg.General.SessionDir = ExpandPath(cfg.General.SessionDir)
	cfg.General.SkillPath = ExpandPath(cfg.General.SkillPath)
	cfg.General.AgentContext = ExpandPath(cfg.General.AgentContext)
	cfg.General.TaskStorePath = ExpandPath(cfg.General.TaskStorePath)

	return cfg, nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// FindLocalConfig walks up from the current working directory looking for
// LocalConfigName, returning its path or "" if none is found.
func FindLocalConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadWithLocalFallback loads explicitPath if given, otherwise searches for
// a LocalConfigName file up the directory tree, otherwise returns defaults.
func LoadWithLocalFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}
	if found := FindLocalConfig(); found != "" {
		return Load(found)
	}
	return Default(), nil
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "taskmaster-longrun", "config.toml")
}
