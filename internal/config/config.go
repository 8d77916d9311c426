// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all watchpost configuration.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// DataConfig names the persisted files. Relative file names resolve
// against Dir.
type DataConfig struct {
	Dir           string `yaml:"dir"`
	LimitsFile    string `yaml:"limits_file"`
	WhitelistFile string `yaml:"whitelist_file"`
	StateFile     string `yaml:"state_file"`
	AuditFile     string `yaml:"audit_file"`
}

// MonitorConfig holds tick settings.
type MonitorConfig struct {
	Interval Duration `yaml:"interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig holds alert forwarding settings.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:           ".",
			LimitsFile:    "resource_limits.txt",
			WhitelistFile: "process_whitelist.txt",
			StateFile:     "alerts_logs.json",
			AuditFile:     "system_logs.txt",
		},
		Monitor: MonitorConfig{
			Interval: Duration{time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "./watchpost.log",
		},
	}
}

// Path resolves a data file name against the data directory.
func (d DataConfig) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	DataDir  string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.DataDir != "" {
		cfg.Data.Dir = cli.DataDir
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

func applyEnvOverrides(cfg *Config) error {
	if dir := os.Getenv("WP_DATA_DIR"); dir != "" {
		cfg.Data.Dir = dir
	}
	if level := os.Getenv("WP_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if token := os.Getenv("WP_TELEGRAM_TOKEN"); token != "" {
		cfg.Notify.Telegram.Token = token
		cfg.Notify.Telegram.Enabled = true
	}
	if raw := os.Getenv("WP_TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("WP_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.Telegram.ChatID = id
	}
	return nil
}

// Validate checks that the configuration can run the monitor.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return errors.New("data directory is required")
	}
	for name, file := range map[string]string{
		"limits_file":    c.Data.LimitsFile,
		"whitelist_file": c.Data.WhitelistFile,
		"state_file":     c.Data.StateFile,
		"audit_file":     c.Data.AuditFile,
	} {
		if file == "" {
			return fmt.Errorf("data.%s is required", name)
		}
	}
	if c.Monitor.Interval.Duration <= 0 {
		return fmt.Errorf("monitor interval must be positive (got: %s)", c.Monitor.Interval.Duration)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if t := c.Notify.Telegram; t.Enabled {
		if t.Token == "" {
			return errors.New("telegram token is required when telegram is enabled")
		}
		if t.ChatID == 0 {
			return errors.New("telegram chat_id is required when telegram is enabled")
		}
	}
	return nil
}
