package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name: "valid config with required fields",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Key != "test_key" {
					t.Errorf("expected Key to be 'test_key', got %s", settings.Key)
				}
				if settings.Secret != "test_secret" {
					t.Errorf("expected Secret to be 'test_secret', got %s", settings.Secret)
				}
				// Defaults
				if settings.Ping != 15*time.Second {
					t.Errorf("expected default Ping 15s, got %v", settings.Ping)
				}
				if settings.HTTPPort != 8080 {
					t.Errorf("expected default HTTPPort 8080, got %d", settings.HTTPPort)
				}
				if settings.DefaultRange != "1m" {
					t.Errorf("expected default range 1m, got %s", settings.DefaultRange)
				}
				if settings.RESTTimeout != 5*time.Second {
					t.Errorf("expected default RESTTimeout 5s, got %v", settings.RESTTimeout)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001,20002,30003",
				"PING_INTERVAL":     "30s",
				"HTTP_PORT":         "9090",
				"DEFAULT_RANGE":     "3m",
				"LOG_LEVEL":         "debug",
				"REST_TIMEOUT":      "10s",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if len(settings.Accounts) != 3 {
					t.Errorf("expected 3 accounts, got %v", settings.Accounts)
				}
				if settings.Ping != 30*time.Second {
					t.Errorf("expected Ping 30s, got %v", settings.Ping)
				}
				if settings.HTTPPort != 9090 {
					t.Errorf("expected HTTPPort 9090, got %d", settings.HTTPPort)
				}
				if settings.DefaultRange != "3m" {
					t.Errorf("expected range 3m, got %s", settings.DefaultRange)
				}
				if settings.LogLevel != "debug" {
					t.Errorf("expected log level debug, got %s", settings.LogLevel)
				}
			},
		},
		{
			name: "missing API key",
			envVars: map[string]string{
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001",
			},
			wantErr: true,
		},
		{
			name: "missing accounts",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
			},
			wantErr: true,
		},
		{
			name: "invalid default range",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001",
				"DEFAULT_RANGE":     "6m",
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001",
				"HTTP_PORT":         "80",
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"BRIDGE_API_KEY":    "test_key",
				"BRIDGE_SECRET_KEY": "test_secret",
				"ACCOUNTS":          "10001",
				"LOG_LEVEL":         "verbose",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			settings, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	content := `
api:
  key: yaml_key
  secret: yaml_secret
  baseURL: https://api.example.test
  wsURL: wss://stream.example.test/realtime
accounts:
  logins:
    - "10001"
    - "20002"
  defaultRange: 1y
system:
  pingInterval: 20s
  httpPort: 9191
  logLevel: warn
  restTimeout: 8s
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Clearenv()
	t.Setenv("CONFIG_FILE", path)

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Key != "yaml_key" || settings.Secret != "yaml_secret" {
		t.Errorf("credentials not loaded: %+v", settings)
	}
	if len(settings.Accounts) != 2 {
		t.Errorf("expected 2 accounts, got %v", settings.Accounts)
	}
	if settings.BaseURL != "https://api.example.test" {
		t.Errorf("expected base URL from file, got %s", settings.BaseURL)
	}
	if settings.Ping != 20*time.Second {
		t.Errorf("expected ping 20s, got %v", settings.Ping)
	}
	if settings.HTTPPort != 9191 {
		t.Errorf("expected port 9191, got %d", settings.HTTPPort)
	}
	if settings.DefaultRange != "1y" {
		t.Errorf("expected range 1y, got %s", settings.DefaultRange)
	}
	if settings.RESTTimeout != 8*time.Second {
		t.Errorf("expected REST timeout 8s, got %v", settings.RESTTimeout)
	}
}

func TestLoadFromYAMLEnvOverrides(t *testing.T) {
	content := `
api:
  key: yaml_key
  secret: yaml_secret
  baseURL: https://api.example.test
  wsURL: wss://stream.example.test/realtime
accounts:
  logins: ["10001"]
  defaultRange: 1m
system:
  pingInterval: 15s
  httpPort: 8080
  logLevel: info
  restTimeout: 5s
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Clearenv()
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BRIDGE_API_KEY", "env_key")
	t.Setenv("ACCOUNTS", "99999")

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Key != "env_key" {
		t.Errorf("env var should override file, got %s", settings.Key)
	}
	if settings.Secret != "yaml_secret" {
		t.Errorf("file value should survive without env override, got %s", settings.Secret)
	}
	if len(settings.Accounts) != 1 || settings.Accounts[0] != "99999" {
		t.Errorf("env accounts should override file, got %v", settings.Accounts)
	}
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	os.Clearenv()
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}
