// Package config loads sparkq settings from a TOML file, SPARKQ_* environment
// variables and an optional named profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SPARKQ_"

// Config is the complete sparkq configuration.
type Config struct {
	Defaults DefaultsConfig `koanf:"defaults"`
	Output   OutputConfig   `koanf:"output"`
	Registry RegistryConfig `koanf:"registry"`
	Server   ServerConfig   `koanf:"server"`
}

// DefaultsConfig holds generation defaults applied when a flag is omitted.
type DefaultsConfig struct {
	Timezone string `koanf:"timezone"` // UTC offset in hours, e.g. "8"
	Distinct bool   `koanf:"distinct"`
	Lint     bool   `koanf:"lint"`
}

// OutputConfig holds output formatting settings
type OutputConfig struct {
	Format string `koanf:"format"` // text, json
	Color  string `koanf:"color"`  // auto, always, never
}

// RegistryConfig points at an optional table definition file layered over
// the built-in tables.
type RegistryConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Address      string        `koanf:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	ConfigPath string
	Profile    string
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Timezone: "0",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
		Server: ServerConfig{
			Address:      ":8125",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			CORSOrigins:  []string{"*"},
		},
	}
}

// Load loads configuration from file and environment
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = DefaultPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else if opts.ConfigPath != "" {
		return nil, fmt.Errorf("config file: %w", err)
	}

	// SPARKQ_SERVER_READ_TIMEOUT -> server.read_timeout
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envToKey(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.Profile != "" {
		profileKey := "profiles." + opts.Profile
		if !k.Exists(profileKey) {
			return nil, fmt.Errorf("profile %s not found", opts.Profile)
		}
		if err := k.Unmarshal(profileKey, cfg); err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", opts.Profile, err)
		}
	}

	return cfg, nil
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	return c.SaveTo(DefaultPath())
}

// SaveTo writes the configuration as TOML to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap{c}, nil); err != nil {
		return err
	}

	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sparkq")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".sparkq"
	}
	return filepath.Join(home, ".config", "sparkq")
}

// ConfigDir returns the configuration directory
func ConfigDir() string {
	return configDir()
}

// envToKey maps an environment suffix to a config key. Only the first
// underscore separates the section, so DEFAULTS_TIMEZONE becomes
// defaults.timezone and SERVER_READ_TIMEOUT becomes server.read_timeout.
func envToKey(s string) string {
	s = strings.ToLower(s)
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + rest
}

// confmap implements koanf.Provider for Config
type confmap struct {
	cfg *Config
}

func (c confmap) ReadBytes() ([]byte, error) { return nil, nil }
func (c confmap) Read() (map[string]any, error) {
	return map[string]any{
		"defaults": map[string]any{
			"timezone": c.cfg.Defaults.Timezone,
			"distinct": c.cfg.Defaults.Distinct,
			"lint":     c.cfg.Defaults.Lint,
		},
		"output": map[string]any{
			"format": c.cfg.Output.Format,
			"color":  c.cfg.Output.Color,
		},
		"registry": map[string]any{
			"path": c.cfg.Registry.Path,
		},
		"server": map[string]any{
			"address":       c.cfg.Server.Address,
			"read_timeout":  c.cfg.Server.ReadTimeout.String(),
			"write_timeout": c.cfg.Server.WriteTimeout.String(),
			"cors_origins":  c.cfg.Server.CORSOrigins,
		},
	}, nil
}
