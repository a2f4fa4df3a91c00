package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTempFile creates a temporary file with the given content and returns its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file %s: %v", path, err)
	}
	return path
}

// ---------------------------------------------------------------------------
// LoadConfig
// ---------------------------------------------------------------------------

func Test_LoadConfig_Cases(t *testing.T) {
	tests := []struct {
		name        string
		setupPath   func(t *testing.T) string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid config loads all fields",
			setupPath: func(t *testing.T) string {
				t.Helper()
				return writeTempFile(t, "config.yaml", `
server:
  port: 9090
  auth_token: test-secret-token
omv:
  host: http://omv.local
  username: monitor
  password: hunter2
  name: nas
  timeout: 5
  poll_interval: 60
  monitored_conditions:
    - hostname
    - cpuusage
metrics:
  enabled: true
  path: /prom
audit:
  enabled: true
  log_path: /tmp/audit.log
`)
			},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Server.AuthToken != "test-secret-token" {
					t.Errorf("Server.AuthToken = %q, want test-secret-token", cfg.Server.AuthToken)
				}
				if cfg.OMV.Host != "http://omv.local" {
					t.Errorf("OMV.Host = %q, want http://omv.local", cfg.OMV.Host)
				}
				if cfg.OMV.Username != "monitor" {
					t.Errorf("OMV.Username = %q, want monitor", cfg.OMV.Username)
				}
				if cfg.OMV.Name != "nas" {
					t.Errorf("OMV.Name = %q, want nas", cfg.OMV.Name)
				}
				if cfg.OMV.PollInterval != 60 {
					t.Errorf("OMV.PollInterval = %d, want 60", cfg.OMV.PollInterval)
				}
				if len(cfg.OMV.MonitoredConditions) != 2 {
					t.Errorf("MonitoredConditions = %v, want 2 entries", cfg.OMV.MonitoredConditions)
				}
				if cfg.Metrics.Path != "/prom" {
					t.Errorf("Metrics.Path = %q, want /prom", cfg.Metrics.Path)
				}
				if !cfg.Audit.Enabled {
					t.Error("Audit.Enabled = false, want true")
				}
			},
		},
		{
			name: "omitted keys keep defaults",
			setupPath: func(t *testing.T) string {
				t.Helper()
				return writeTempFile(t, "config.yaml", `
omv:
  host: http://omv.local
  password: hunter2
`)
			},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.OMV.Username != DefaultUsername {
					t.Errorf("OMV.Username = %q, want default %q", cfg.OMV.Username, DefaultUsername)
				}
				if cfg.OMV.Name != DefaultSensorName {
					t.Errorf("OMV.Name = %q, want default %q", cfg.OMV.Name, DefaultSensorName)
				}
				if cfg.OMV.PollInterval != 30 {
					t.Errorf("OMV.PollInterval = %d, want default 30", cfg.OMV.PollInterval)
				}
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
				}
				if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
					t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
				}
			},
		},
		{
			name: "missing file",
			setupPath: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "does-not-exist.yaml")
			},
			wantErr:     true,
			errContains: "failed to read config file",
		},
		{
			name: "invalid yaml",
			setupPath: func(t *testing.T) string {
				t.Helper()
				return writeTempFile(t, "bad.yaml", "omv: [unclosed")
			},
			wantErr:     true,
			errContains: "failed to unmarshal config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(tt.setupPath(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %q, want substring %q", err, tt.errContains)
				}
				if cfg != nil {
					t.Errorf("expected nil config on error, got %+v", cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

func Test_DefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OMV.Username != "admin" {
		t.Errorf("OMV.Username = %q, want admin", cfg.OMV.Username)
	}
	if cfg.OMV.Name != "openmediavault" {
		t.Errorf("OMV.Name = %q, want openmediavault", cfg.OMV.Name)
	}
	if cfg.OMV.Timeout != 10 {
		t.Errorf("OMV.Timeout = %d, want 10", cfg.OMV.Timeout)
	}
	if cfg.OMV.Host != "" {
		t.Errorf("OMV.Host = %q, want empty (required, no default)", cfg.OMV.Host)
	}
	if cfg.OMV.Password != "" {
		t.Errorf("OMV.Password = %q, want empty (required, no default)", cfg.OMV.Password)
	}

	// Distinct instances.
	other := DefaultConfig()
	other.OMV.Name = "changed"
	if cfg.OMV.Name == "changed" {
		t.Error("DefaultConfig instances share state")
	}
}

// ---------------------------------------------------------------------------
// ApplyEnvOverrides
// ---------------------------------------------------------------------------

func Test_ApplyEnvOverrides_Cases(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		initial  func() *Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "all overrides set",
			env: map[string]string{
				"OMV_MCP_AUTH_TOKEN": "tok",
				"OMV_HOST":           "http://env.local",
				"OMV_USERNAME":       "envuser",
				"OMV_PASSWORD":       "envpass",
			},
			initial: DefaultConfig,
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.AuthToken != "tok" {
					t.Errorf("AuthToken = %q, want tok", cfg.Server.AuthToken)
				}
				if cfg.OMV.Host != "http://env.local" {
					t.Errorf("Host = %q, want http://env.local", cfg.OMV.Host)
				}
				if cfg.OMV.Username != "envuser" {
					t.Errorf("Username = %q, want envuser", cfg.OMV.Username)
				}
				if cfg.OMV.Password != "envpass" {
					t.Errorf("Password = %q, want envpass", cfg.OMV.Password)
				}
			},
		},
		{
			name: "unset env preserves existing values",
			env:  map[string]string{},
			initial: func() *Config {
				cfg := DefaultConfig()
				cfg.OMV.Host = "http://file.local"
				cfg.OMV.Password = "filepass"
				return cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.OMV.Host != "http://file.local" {
					t.Errorf("Host = %q, want http://file.local", cfg.OMV.Host)
				}
				if cfg.OMV.Password != "filepass" {
					t.Errorf("Password = %q, want filepass", cfg.OMV.Password)
				}
			},
		},
		{
			name: "empty env value does not override",
			env:  map[string]string{"OMV_USERNAME": ""},
			initial: func() *Config {
				cfg := DefaultConfig()
				cfg.OMV.Username = "existing"
				return cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.OMV.Username != "existing" {
					t.Errorf("Username = %q, want existing", cfg.OMV.Username)
				}
			},
		},
	}

	envKeys := []string{"OMV_MCP_AUTH_TOKEN", "OMV_HOST", "OMV_USERNAME", "OMV_PASSWORD"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envKeys {
				if val, ok := tt.env[key]; ok {
					t.Setenv(key, val)
				} else {
					t.Setenv(key, "")
				}
			}

			cfg := tt.initial()
			ApplyEnvOverrides(cfg)
			tt.validate(t, cfg)
		})
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func Test_Validate_Cases(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.OMV.Host = "http://omv.local"
		cfg.OMV.Password = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		errPart string
	}{
		{
			name:   "valid config",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing host",
			mutate:  func(cfg *Config) { cfg.OMV.Host = "" },
			errPart: "omv.host",
		},
		{
			name:    "missing password",
			mutate:  func(cfg *Config) { cfg.OMV.Password = "" },
			errPart: "omv.password",
		},
		{
			name:    "non-positive poll interval",
			mutate:  func(cfg *Config) { cfg.OMV.PollInterval = 0 },
			errPart: "poll_interval",
		},
		{
			name: "metrics enabled without path",
			mutate: func(cfg *Config) {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Path = ""
			},
			errPart: "metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.errPart == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %q, want substring %q", err, tt.errPart)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// EnsureAuthToken / GenerateRandomToken
// ---------------------------------------------------------------------------

func Test_EnsureAuthToken_KeepsExisting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.AuthToken = "keep-me"

	token, err := EnsureAuthToken(cfg)
	if err != nil {
		t.Fatalf("EnsureAuthToken: %v", err)
	}
	if token != "keep-me" || cfg.Server.AuthToken != "keep-me" {
		t.Errorf("token = %q, cfg token = %q, want keep-me", token, cfg.Server.AuthToken)
	}
}

func Test_EnsureAuthToken_GeneratesWhenEmpty(t *testing.T) {
	cfg := DefaultConfig()

	token, err := EnsureAuthToken(cfg)
	if err != nil {
		t.Fatalf("EnsureAuthToken: %v", err)
	}
	if len(token) != 32 {
		t.Errorf("len(token) = %d, want 32", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Errorf("token %q is not hex: %v", token, err)
	}
	if cfg.Server.AuthToken != token {
		t.Errorf("cfg token %q not set to generated token %q", cfg.Server.AuthToken, token)
	}
}
