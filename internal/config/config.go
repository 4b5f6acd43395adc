// Package config loads settings from ~/.siphon/config.yaml with SIPHON_*
// environment overrides. Every field has a sane default so a fresh install
// runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Collect  CollectConfig  `mapstructure:"collect"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Export   ExportConfig   `mapstructure:"export"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig controls the local daemon.
type ServerConfig struct {
	// Host should stay a loopback address; the daemon refuses to serve
	// non-local clients either way.
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig controls the SQLite store.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// CollectConfig controls the pull-based collectors.
type CollectConfig struct {
	// ShellHistoryLimit caps how many history lines one collect run imports.
	ShellHistoryLimit int `mapstructure:"shell_history_limit"`
	// BrowserHistoryHours is how far back the browser collector reaches.
	BrowserHistoryHours int `mapstructure:"browser_history_hours"`
	// GitRepos lists repositories to pull commit history from. Empty means
	// the current directory's repository only.
	GitRepos []string `mapstructure:"git_repos"`
}

// AnalysisConfig controls the analysis pipeline defaults.
type AnalysisConfig struct {
	// WindowHours is the default lookback for analyze runs.
	WindowHours int `mapstructure:"window_hours"`
	// CacheTTLMinutes is how long daemon analysis responses stay cached.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

// ExportConfig controls export destinations.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Addr returns the listen address for the daemon.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultDataDir returns ~/.siphon, falling back to the working directory
// when the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".siphon"
	}
	return filepath.Join(home, ".siphon")
}

// DefaultConfigPath returns ~/.siphon/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 9847)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("storage.data_dir", DefaultDataDir())
	v.SetDefault("storage.retention_days", 30)
	v.SetDefault("collect.shell_history_limit", 1000)
	v.SetDefault("collect.browser_history_hours", 24)
	v.SetDefault("analysis.window_hours", 24)
	v.SetDefault("analysis.cache_ttl_minutes", 5)
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("log.level", "info")
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIPHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
