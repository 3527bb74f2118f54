// FILE: src/internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

type Config struct {
	Console ConsoleConfig `toml:"console"`
	Remote  RemoteConfig  `toml:"remote"`
	Layout  LayoutConfig  `toml:"layout"`
	Report  ReportConfig  `toml:"report"`
	Logging *LogConfig    `toml:"logging"`
}

// ConsoleConfig controls the in-memory log hub.
type ConsoleConfig struct {
	// Capacity is the bounded buffer size in records.
	Capacity int `toml:"capacity"`
}

// RemoteConfig controls the push channel remote processes log into.
type RemoteConfig struct {
	TCP  TCPConfig  `toml:"tcp"`
	HTTP HTTPConfig `toml:"http"`

	// AuthToken, when set, is the HS256 secret push clients must present.
	AuthToken string `toml:"auth_token"`

	// IngestRPS caps accepted records per second, 0 disables the limit.
	IngestRPS   float64 `toml:"ingest_rps"`
	IngestBurst int     `toml:"ingest_burst"`

	// Reconnect backoff for the subscriber loop.
	RetryInitialDelayMs int64   `toml:"retry_initial_delay_ms"`
	RetryMaxDelayMs     int64   `toml:"retry_max_delay_ms"`
	RetryMultiplier     float64 `toml:"retry_multiplier"`
}

type TCPConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	BufferSize int    `toml:"buffer_size"`
}

type HTTPConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	BufferSize int    `toml:"buffer_size"`
	IngestPath string `toml:"ingest_path"`
}

// LayoutConfig locates the persisted panel geometry.
type LayoutConfig struct {
	Path string `toml:"path"`
}

// ReportConfig configures the bug report surface.
type ReportConfig struct {
	BaseURL string `toml:"base_url"`
}

func defaults() *Config {
	return &Config{
		Console: ConsoleConfig{
			Capacity: 1000,
		},
		Remote: RemoteConfig{
			TCP: TCPConfig{
				Enabled:    true,
				Host:       "127.0.0.1",
				Port:       9514,
				BufferSize: 1000,
			},
			HTTP: HTTPConfig{
				Enabled:    false,
				Host:       "127.0.0.1",
				Port:       9515,
				BufferSize: 1000,
				IngestPath: "/ingest",
			},
			IngestRPS:           0,
			IngestBurst:         0,
			RetryInitialDelayMs: 500,
			RetryMaxDelayMs:     30000,
			RetryMultiplier:     2.0,
		},
		Layout: LayoutConfig{
			Path: defaultLayoutPath(),
		},
		Report: ReportConfig{
			BaseURL: "",
		},
		Logging: DefaultLogConfig(),
	}
}

func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("LOGDECK_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "LOGDECK_" + env
	return env
}

func GetConfigPath() string {
	if configFile := os.Getenv("LOGDECK_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGDECK_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGDECK_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logdeck.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logdeck.toml")
	}

	return "logdeck.toml"
}

func defaultLayoutPath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logdeck-layout.toml")
	}
	return "logdeck-layout.toml"
}

func (c *Config) validate() error {
	if c.Console.Capacity < 1 {
		return fmt.Errorf("console capacity must be positive: %d", c.Console.Capacity)
	}

	if c.Remote.TCP.Enabled {
		if c.Remote.TCP.Port < 1 || c.Remote.TCP.Port > 65535 {
			return fmt.Errorf("invalid TCP port: %d", c.Remote.TCP.Port)
		}
		if c.Remote.TCP.BufferSize < 1 {
			return fmt.Errorf("TCP buffer size must be positive: %d", c.Remote.TCP.BufferSize)
		}
	}

	if c.Remote.HTTP.Enabled {
		if c.Remote.HTTP.Port < 1 || c.Remote.HTTP.Port > 65535 {
			return fmt.Errorf("invalid HTTP port: %d", c.Remote.HTTP.Port)
		}
		if c.Remote.HTTP.BufferSize < 1 {
			return fmt.Errorf("HTTP buffer size must be positive: %d", c.Remote.HTTP.BufferSize)
		}
		if !strings.HasPrefix(c.Remote.HTTP.IngestPath, "/") {
			return fmt.Errorf("HTTP ingest path must start with '/': %s", c.Remote.HTTP.IngestPath)
		}
	}

	if c.Remote.IngestRPS < 0 {
		return fmt.Errorf("ingest rate must not be negative: %f", c.Remote.IngestRPS)
	}
	if c.Remote.IngestRPS > 0 && c.Remote.IngestBurst < 1 {
		return fmt.Errorf("ingest burst must be positive when rate limiting: %d", c.Remote.IngestBurst)
	}

	if c.Remote.RetryInitialDelayMs < 1 {
		return fmt.Errorf("retry initial delay must be positive: %d ms", c.Remote.RetryInitialDelayMs)
	}
	if c.Remote.RetryMaxDelayMs < c.Remote.RetryInitialDelayMs {
		return fmt.Errorf("retry max delay must not be below initial delay: %d ms", c.Remote.RetryMaxDelayMs)
	}
	if c.Remote.RetryMultiplier < 1 {
		return fmt.Errorf("retry multiplier must be at least 1: %f", c.Remote.RetryMultiplier)
	}

	if c.Layout.Path == "" {
		return fmt.Errorf("layout path must not be empty")
	}

	if c.Logging != nil {
		if err := validateLogConfig(c.Logging); err != nil {
			return err
		}
	}

	return nil
}
