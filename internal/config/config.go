package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the kqlbridge configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Insights InsightsConfig `yaml:"appinsights"`
	Auth     AuthConfig     `yaml:"auth"`
	Cache    CacheConfig    `yaml:"cache"`
	Patterns PatternsConfig `yaml:"patterns"`
	Sanitize SanitizeConfig `yaml:"sanitize"`
	Ops      OpsConfig      `yaml:"ops"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// InsightsConfig holds the Application Insights query API settings.
type InsightsConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AppID      string `yaml:"app_id"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AuthConfig holds the Entra ID settings.
type AuthConfig struct {
	TenantID     string   `yaml:"tenant_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Mode         string   `yaml:"mode"` // client_credentials, device_code (default: device_code)
	Scopes       []string `yaml:"scopes"`
}

// CacheConfig holds the result cache settings.
type CacheConfig struct {
	Dir     string `yaml:"dir"`
	TTLSec  int    `yaml:"ttl_sec"`
	Enabled *bool  `yaml:"enabled"` // default: true
}

// IsEnabled reports whether the cache should touch storage.
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PatternsConfig holds the saved-query and external reference settings.
type PatternsConfig struct {
	LocalDir        string              `yaml:"local_dir"`
	FetchTimeoutSec int                 `yaml:"fetch_timeout_sec"`
	External        []ExternalRefConfig `yaml:"external"`
}

// ExternalRefConfig is one configured external query source.
type ExternalRefConfig struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
}

// SanitizeConfig holds PII redaction settings.
type SanitizeConfig struct {
	Enabled *bool `yaml:"enabled"` // default: true
}

// IsEnabled reports whether result payloads are redacted.
func (c *SanitizeConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// OpsConfig holds the optional operations HTTP server settings.
type OpsConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from KQLBRIDGE_ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("KQLBRIDGE_ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Insights.Endpoint == "" {
		c.Insights.Endpoint = "https://api.applicationinsights.io"
	}
	if c.Insights.TimeoutSec <= 0 {
		c.Insights.TimeoutSec = 30
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "device_code"
	}
	if len(c.Auth.Scopes) == 0 {
		c.Auth.Scopes = []string{"https://api.applicationinsights.io/.default"}
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(homeDir(), ".kqlbridge", "cache")
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Patterns.LocalDir == "" {
		c.Patterns.LocalDir = filepath.Join(homeDir(), ".kqlbridge", "queries")
	}
	if c.Patterns.FetchTimeoutSec <= 0 {
		c.Patterns.FetchTimeoutSec = 10
	}
	if c.Ops.Port <= 0 {
		c.Ops.Port = 9180
	}
	if c.Ops.ReadTimeoutSec <= 0 {
		c.Ops.ReadTimeoutSec = 10
	}
	if c.Ops.WriteTimeoutSec <= 0 {
		c.Ops.WriteTimeoutSec = 10
	}
	if c.Ops.ShutdownSec <= 0 {
		c.Ops.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Insights.AppID == "" {
		return fmt.Errorf("appinsights.app_id is required")
	}
	if c.Auth.TenantID == "" || c.Auth.ClientID == "" {
		return fmt.Errorf("auth.tenant_id and auth.client_id are required")
	}
	switch c.Auth.Mode {
	case "client_credentials", "device_code":
		// ok
	default:
		return fmt.Errorf(
			"auth.mode must be \"client_credentials\" or \"device_code\", got %q", c.Auth.Mode,
		)
	}
	if c.Auth.Mode == "client_credentials" && c.Auth.ClientSecret == "" {
		return fmt.Errorf("auth.client_secret is required for the client_credentials mode")
	}
	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return fmt.Errorf("ops.port must be between 1 and 65535, got %d", c.Ops.Port)
	}
	for i, ref := range c.Patterns.External {
		if ref.Name == "" {
			return fmt.Errorf("patterns.external[%d].name is required", i)
		}
		if len(ref.URLs) == 0 {
			return fmt.Errorf("patterns.external[%d].urls is required", i)
		}
	}
	return nil
}

// findConfigPath locates the config file. KQLBRIDGE_CONFIG wins when set.
func findConfigPath(env string) string {
	if path := os.Getenv("KQLBRIDGE_CONFIG"); path != "" {
		return path
	}

	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnvVars substitutes ${VAR} references with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
