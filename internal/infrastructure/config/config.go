package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes environment variables (MPOS_PORT, MPOS_APPS_ROOT,
// ...). The unprefixed names keep working as a fallback.
const EnvPrefix = "mpos"

// FileEnv names the optional YAML config file overlaid on top of the
// environment.
const FileEnv = "MPOS_CONFIG"

// Config holds all shell configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Apps      AppsConfig      `yaml:"apps"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Script    ScriptConfig    `yaml:"script"`
	Display   DisplayConfig   `yaml:"display"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// AppsConfig holds package management configuration. Root is the
// on-disk layout root holding apps/, builtin/, prefs/ and tmp/.
type AppsConfig struct {
	Root          string        `envconfig:"APPS_ROOT" default:"mpos-data" yaml:"root"`
	StoreURL      string        `envconfig:"STORE_URL" default:"https://apps.micropythonos.com" yaml:"store_url"`
	Watch         bool          `envconfig:"APPS_WATCH" default:"true" yaml:"watch"`
	WatchDebounce time.Duration `envconfig:"APPS_WATCH_DEBOUNCE" default:"500ms" yaml:"watch_debounce"`
}

// PrefsConfig holds preference store configuration. An empty Dir
// places stores under <root>/prefs.
type PrefsConfig struct {
	Dir string `envconfig:"PREFS_DIR" default:"" yaml:"dir"`
}

// ScriptConfig holds script runtime limits.
type ScriptConfig struct {
	Timeout      time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"2s" yaml:"timeout"`
	MaxCallStack int           `envconfig:"SCRIPT_MAX_CALL_STACK" default:"1024" yaml:"max_call_stack"`
	ConsoleLimit int           `envconfig:"SCRIPT_CONSOLE_LIMIT" default:"256" yaml:"console_limit"`
}

// DisplayConfig holds the surface dimensions handed to activities.
type DisplayConfig struct {
	Width  int `envconfig:"DISPLAY_WIDTH" default:"320" yaml:"width"`
	Height int `envconfig:"DISPLAY_HEIGHT" default:"240" yaml:"height"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables, then overlays
// the YAML file named by MPOS_CONFIG if one is set. File values win
// over environment values; fields absent from the file keep theirs.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns
// defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration. Used by tests.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Apps: AppsConfig{
			Root:          "mpos-data",
			StoreURL:      "https://apps.micropythonos.com",
			Watch:         true,
			WatchDebounce: 500 * time.Millisecond,
		},
		Script: ScriptConfig{
			Timeout:      2 * time.Second,
			MaxCallStack: 1024,
			ConsoleLimit: 256,
		},
		Display: DisplayConfig{
			Width:  320,
			Height: 240,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
