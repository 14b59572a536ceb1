// Package config handles loading and managing application configuration
// from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/openqr/qrcode-generator/generator"
	"github.com/openqr/qrcode-generator/render"
)

// HistoryConfig controls the optional generation history.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// Config holds all application configuration values.
type Config struct {
	Port           int           `yaml:"port"`
	LogLevel       string        `yaml:"log_level"`
	DefaultValue   string        `yaml:"default_value"`
	Width          int           `yaml:"width"`
	Margin         int           `yaml:"margin"`
	DarkColor      string        `yaml:"dark_color"`
	LightColor     string        `yaml:"light_color"`
	FileName       string        `yaml:"file_name"`
	Encoder        string        `yaml:"encoder"`
	RecoveryLevel  string        `yaml:"recovery_level"`
	MaxInputLength int           `yaml:"max_input_length"`
	SessionTTL     Duration      `yaml:"session_ttl"`
	DataDir        string        `yaml:"data_dir"`
	History        HistoryConfig `yaml:"history"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Defaults returns a Config populated with the stock form settings.
func Defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:           8080,
		LogLevel:       "info",
		DefaultValue:   generator.DefaultValue,
		Width:          280,
		Margin:         1,
		DarkColor:      "#2b2c34",
		LightColor:     "#ffffff",
		FileName:       generator.DefaultFileName,
		Encoder:        "skip2",
		RecoveryLevel:  "medium",
		MaxInputLength: 0,
		SessionTTL:     Duration{30 * time.Minute},
		DataDir:        filepath.Join(homeDir, ".qrcode-generator"),
		History: HistoryConfig{
			Enabled: false,
			Limit:   50,
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory
// is loaded into the environment first, then QRG_ environment variables
// override any file or default values.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist: proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Variables already set in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.DataDir = expandHome(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies QRG_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRG_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("QRG_DEFAULT_VALUE"); ok {
		cfg.DefaultValue = v
	}
	if v := os.Getenv("QRG_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Width = n
		}
	}
	if v := os.Getenv("QRG_MARGIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Margin = n
		}
	}
	if v := os.Getenv("QRG_DARK_COLOR"); v != "" {
		cfg.DarkColor = v
	}
	if v := os.Getenv("QRG_LIGHT_COLOR"); v != "" {
		cfg.LightColor = v
	}
	if v := os.Getenv("QRG_FILE_NAME"); v != "" {
		cfg.FileName = v
	}
	if v := os.Getenv("QRG_ENCODER"); v != "" {
		cfg.Encoder = v
	}
	if v := os.Getenv("QRG_RECOVERY_LEVEL"); v != "" {
		cfg.RecoveryLevel = v
	}
	if v := os.Getenv("QRG_MAX_INPUT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxInputLength = n
		}
	}
	if v := os.Getenv("QRG_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = Duration{d}
		}
	}
	if v := os.Getenv("QRG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRG_HISTORY_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.History.Enabled = true
		case "false", "0", "no":
			cfg.History.Enabled = false
		}
	}
	if v := os.Getenv("QRG_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.Limit = n
		}
	}
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", c.Width)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %d", c.Margin)
	}
	if c.MaxInputLength < 0 {
		return fmt.Errorf("max_input_length must not be negative, got %d", c.MaxInputLength)
	}
	if c.FileName == "" || strings.ContainsAny(c.FileName, `/\"`) {
		return fmt.Errorf("invalid file_name %q", c.FileName)
	}
	if _, err := render.NewEncoder(c.Encoder); err != nil {
		return err
	}
	if _, err := c.RenderOptions(); err != nil {
		return err
	}
	return nil
}

// RenderOptions converts the drawing settings into encoder options.
func (c *Config) RenderOptions() (render.Options, error) {
	dark, err := render.ParseHexColor(c.DarkColor)
	if err != nil {
		return render.Options{}, fmt.Errorf("dark_color: %w", err)
	}
	light, err := render.ParseHexColor(c.LightColor)
	if err != nil {
		return render.Options{}, fmt.Errorf("light_color: %w", err)
	}
	level, err := render.ParseLevel(c.RecoveryLevel)
	if err != nil {
		return render.Options{}, fmt.Errorf("recovery_level: %w", err)
	}
	return render.Options{
		Width:  c.Width,
		Margin: c.Margin,
		Dark:   dark,
		Light:  light,
		Level:  level,
	}, nil
}

// GeneratorConfig returns the per-session generator settings.
func (c *Config) GeneratorConfig() (generator.Config, error) {
	opts, err := c.RenderOptions()
	if err != nil {
		return generator.Config{}, err
	}
	return generator.Config{
		DefaultValue:   c.DefaultValue,
		FileName:       c.FileName,
		MaxInputLength: c.MaxInputLength,
		Options:        opts,
	}, nil
}

// HistoryPath is where the generation history database lives.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}
