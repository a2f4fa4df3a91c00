// Package config provides configuration loading and defaults for the omv-mcp server.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSensorName is the display name used when the config omits one. It
// doubles as the entity name prefix for every condition sensor.
const DefaultSensorName = "openmediavault"

// DefaultUsername is the OMV account used when the config omits one.
const DefaultUsername = "admin"

// ServerConfig holds network and authentication settings for the MCP
// listener.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// OMVConfig holds connection details for the OpenMediaVault server and the
// sensor they feed.
type OMVConfig struct {
	// Host is the base URL of the OMV web interface, e.g. "http://omv.local".
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Name is the sensor display name and entity name prefix.
	Name string `yaml:"name"`
	// Timeout is the HTTP request timeout in seconds.
	Timeout int `yaml:"timeout"`
	// PollInterval is the status poll period in seconds.
	PollInterval int `yaml:"poll_interval"`
	// MonitoredConditions selects which status fields are exposed as
	// sensors. Empty means all known conditions.
	MonitoredConditions []string `yaml:"monitored_conditions"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// Config is the top-level configuration structure for the omv-mcp server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	OMV     OMVConfig     `yaml:"omv"`
	Metrics MetricsConfig `yaml:"metrics"`
	Audit   AuditConfig   `yaml:"audit"`
}

// LoadConfig reads and parses a YAML configuration file from the given
// path. Parsing starts from DefaultConfig, so keys absent from the file
// keep their default values. On error, nil is returned for the config
// pointer.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a new Config populated with sensible default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		OMV: OMVConfig{
			Username:     DefaultUsername,
			Name:         DefaultSensorName,
			Timeout:      10,
			PollInterval: 30,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Audit: AuditConfig{
			Enabled: false,
			LogPath: "/config/audit.log",
		},
	}
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - OMV_MCP_AUTH_TOKEN overrides cfg.Server.AuthToken
//   - OMV_HOST overrides cfg.OMV.Host
//   - OMV_USERNAME overrides cfg.OMV.Username
//   - OMV_PASSWORD overrides cfg.OMV.Password
func ApplyEnvOverrides(cfg *Config) {
	if token := os.Getenv("OMV_MCP_AUTH_TOKEN"); token != "" {
		cfg.Server.AuthToken = token
	}
	if host := os.Getenv("OMV_HOST"); host != "" {
		cfg.OMV.Host = host
	}
	if user := os.Getenv("OMV_USERNAME"); user != "" {
		cfg.OMV.Username = user
	}
	if pass := os.Getenv("OMV_PASSWORD"); pass != "" {
		cfg.OMV.Password = pass
	}
}

// Validate checks that cfg carries everything the server cannot run
// without. It does not validate condition names; the sensor package owns
// the condition registry.
func Validate(cfg *Config) error {
	if cfg.OMV.Host == "" {
		return fmt.Errorf("config: omv.host is required")
	}
	if cfg.OMV.Password == "" {
		return fmt.Errorf("config: omv.password is required")
	}
	if cfg.OMV.PollInterval <= 0 {
		return fmt.Errorf("config: omv.poll_interval must be positive, got %d", cfg.OMV.PollInterval)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		return fmt.Errorf("config: metrics.path is required when metrics are enabled")
	}
	return nil
}

// EnsureAuthToken generates a random auth token and sets it on cfg if
// cfg.Server.AuthToken is empty. It returns the token (existing or generated)
// and any error encountered during generation.
func EnsureAuthToken(cfg *Config) (string, error) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, nil
	}
	token, err := GenerateRandomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	cfg.Server.AuthToken = token
	return token, nil
}

// GenerateRandomToken returns a 32-character hex-encoded cryptographically
// random token string.
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}
