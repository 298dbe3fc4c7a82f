// Package config loads and normalises site-server configuration files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAddr                = "127.0.0.1"
	defaultPort                = ":8080"
	defaultAssetsDir           = "web"
	defaultWASMPath            = "web/main.wasm"
	defaultSiteName            = "Quinfall"
	defaultTimeoutSeconds      = 10
	defaultMaintenanceSeconds  = 30
	defaultPlayerCountSeconds  = 60
	defaultLogLevel            = "info"
	defaultPublicAPIBasePrefix = "/api"
)

// ErrMissingAPIBase is returned when no backend URL is configured.
var ErrMissingAPIBase = errors.New("config: backend api_base is required")

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr"`
	Port string `json:"port"`
}

// AppConfig configures static assets and the WASM bundle.
type AppConfig struct {
	Assets  string `json:"assets"`
	WASM    string `json:"wasm"`
	Name    string `json:"name"`
	// SiteURL is the public origin of the site, e.g. https://quinfall.com. It is used for
	// absolute links when a request carries no Host.
	SiteURL string `json:"site_url"`
}

// BackendConfig points the site at the studio backend.
type BackendConfig struct {
	// APIBase is the URL the server uses to reach the backend.
	APIBase string `json:"api_base"`
	// PublicAPIBase is the URL browsers use for OAuth redirects and claims. Defaults to
	// the same-origin /api proxy.
	PublicAPIBase  string `json:"public_api_base"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Dir   string `json:"dir"`
	Level string `json:"level"`
}

// CacheConfig sets how long backend lookups are reused.
type CacheConfig struct {
	MaintenanceSeconds int `json:"maintenance_seconds"`
	PlayerCountSeconds int `json:"player_count_seconds"`
}

// Config represents the runtime settings parsed from config.json.
type Config struct {
	Server  ServerConfig  `json:"server"`
	App     AppConfig     `json:"app"`
	Backend BackendConfig `json:"backend"`
	Logging LoggingConfig `json:"logging"`
	Cache   CacheConfig   `json:"cache"`
}

// Default returns a Config with every default applied and no backend.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads the JSON config at path, applies .env files and environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with override applied after defaults and before validation, for
// command-line flags.
func LoadWith(path string, override func(*Config)) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}

	LoadEnv(nil)
	cfg.applyEnv()
	cfg.applyDefaults()
	if override != nil {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot serve traffic.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.APIBase) == "" {
		return ErrMissingAPIBase
	}
	if !strings.HasPrefix(c.Server.Port, ":") {
		return fmt.Errorf("config: port %q must start with ':'", c.Server.Port)
	}
	return nil
}

// ListenAddr joins Addr and Port.
func (c Config) ListenAddr() string {
	return c.Server.Addr + c.Server.Port
}

// BackendTimeout is the per-request timeout for backend calls.
func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// MaintenanceTTL is how long a maintenance lookup is cached.
func (c Config) MaintenanceTTL() time.Duration {
	return time.Duration(c.Cache.MaintenanceSeconds) * time.Second
}

// PlayerCountTTL is how long a player count lookup is cached.
func (c Config) PlayerCountTTL() time.Duration {
	return time.Duration(c.Cache.PlayerCountSeconds) * time.Second
}

func (c *Config) applyEnv() {
	c.Server.Addr = GetEnv("SITE_ADDR", c.Server.Addr)
	if port := GetEnv("SITE_PORT", ""); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		c.Server.Port = port
	}
	c.App.SiteURL = GetEnv("SITE_URL", c.App.SiteURL)
	c.Backend.APIBase = GetEnv("BACKEND_API_BASE", c.Backend.APIBase)
	c.Backend.PublicAPIBase = GetEnv("PUBLIC_API_BASE", c.Backend.PublicAPIBase)
	c.Logging.Level = GetEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Dir = GetEnv("LOG_DIR", c.Logging.Dir)
	c.Backend.TimeoutSeconds = GetEnvInt("BACKEND_TIMEOUT_SECONDS", c.Backend.TimeoutSeconds)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.App.Assets == "" {
		c.App.Assets = defaultAssetsDir
	}
	if c.App.WASM == "" {
		c.App.WASM = defaultWASMPath
	}
	if c.App.Name == "" {
		c.App.Name = defaultSiteName
	}
	c.App.SiteURL = strings.TrimSuffix(strings.TrimSpace(c.App.SiteURL), "/")
	c.Backend.APIBase = strings.TrimSuffix(strings.TrimSpace(c.Backend.APIBase), "/")
	if strings.TrimSpace(c.Backend.PublicAPIBase) == "" {
		c.Backend.PublicAPIBase = defaultPublicAPIBasePrefix
	}
	c.Backend.PublicAPIBase = strings.TrimSuffix(strings.TrimSpace(c.Backend.PublicAPIBase), "/")
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Cache.MaintenanceSeconds <= 0 {
		c.Cache.MaintenanceSeconds = defaultMaintenanceSeconds
	}
	if c.Cache.PlayerCountSeconds <= 0 {
		c.Cache.PlayerCountSeconds = defaultPlayerCountSeconds
	}
}

// Save writes the configuration back to a JSON file at the given path.
func Save(cfg Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
