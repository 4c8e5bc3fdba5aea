package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Key, Secret  string
	Accounts     []string
	BaseURL      string
	WsURL        string
	Ping         time.Duration
	DataPath     string
	DefaultRange string
	HTTPPort     int
	LogLevel     string
	RESTTimeout  time.Duration
}

type ConfigFile struct {
	API struct {
		Key     string `yaml:"key"`
		Secret  string `yaml:"secret"`
		BaseURL string `yaml:"baseURL"`
		WsURL   string `yaml:"wsURL"`
	} `yaml:"api"`

	Accounts struct {
		Logins       []string `yaml:"logins"`
		DefaultRange string   `yaml:"defaultRange"`
	} `yaml:"accounts"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		PingInterval string `yaml:"pingInterval"`
		HTTPPort     int    `yaml:"httpPort"`
		LogLevel     string `yaml:"logLevel"`
		RESTTimeout  string `yaml:"restTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	ping, err := time.ParseDuration(config.System.PingInterval)
	if err != nil {
		ping = 15 * time.Second
	}

	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	// Environment variables take precedence over the file.
	key := getEnvOrDefault("BRIDGE_API_KEY", config.API.Key)
	secret := getEnvOrDefault("BRIDGE_SECRET_KEY", config.API.Secret)

	if key == "" || secret == "" {
		return Settings{}, fmt.Errorf("API key and secret are required")
	}

	settings := Settings{
		Key:          key,
		Secret:       secret,
		Accounts:     getAccountsFromEnvOrConfig(config.Accounts.Logins),
		BaseURL:      getEnvOrDefault("BASE_URL", config.API.BaseURL),
		WsURL:        getEnvOrDefault("WS_URL", config.API.WsURL),
		Ping:         ping,
		DataPath:     getEnvOrDefault("DATA_PATH", config.System.DataPath),
		DefaultRange: getEnvOrDefault("DEFAULT_RANGE", config.Accounts.DefaultRange),
		HTTPPort:     getIntFromEnvOrConfig("HTTP_PORT", config.System.HTTPPort),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", config.System.LogLevel),
		RESTTimeout:  restTimeout,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	key, err := getEnvRequired("BRIDGE_API_KEY")
	if err != nil {
		return Settings{}, err
	}

	secret, err := getEnvRequired("BRIDGE_SECRET_KEY")
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Key:          key,
		Secret:       secret,
		Accounts:     splitOrDefault(os.Getenv("ACCOUNTS"), nil),
		BaseURL:      getEnvOrDefault("BASE_URL", "https://api.bridge.local"),
		WsURL:        getEnvOrDefault("WS_URL", "wss://stream.bridge.local/realtime"),
		Ping:         getDurationOrDefault("PING_INTERVAL", 15*time.Second),
		DataPath:     os.Getenv("DATA_PATH"), // optional
		DefaultRange: getEnvOrDefault("DEFAULT_RANGE", "1m"),
		HTTPPort:     getIntOrDefault("HTTP_PORT", 8080),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		RESTTimeout:  getDurationOrDefault("REST_TIMEOUT", 5*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is missing", key)
	}
	return v, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getAccountsFromEnvOrConfig(configLogins []string) []string {
	if env := os.Getenv("ACCOUNTS"); env != "" {
		return strings.Split(env, ",")
	}
	return configLogins
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return getIntOrDefault(key, 8080)
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.Key == "" || settings.Secret == "" {
		return fmt.Errorf("API key and secret are required")
	}

	if len(settings.Accounts) == 0 {
		return fmt.Errorf("at least one account login must be specified")
	}

	if settings.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if settings.WsURL == "" {
		return fmt.Errorf("WebSocket URL cannot be empty")
	}

	if settings.Ping < time.Second || settings.Ping > 5*time.Minute {
		return fmt.Errorf("ping interval must be between 1s and 5m, got %v", settings.Ping)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}

	if settings.HTTPPort < 1024 || settings.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1024 and 65535, got %d", settings.HTTPPort)
	}

	switch settings.DefaultRange {
	case "1m", "3m", "1y":
	default:
		return fmt.Errorf("default range must be one of 1m, 3m, 1y, got %q", settings.DefaultRange)
	}

	switch settings.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", settings.LogLevel)
	}

	return nil
}
