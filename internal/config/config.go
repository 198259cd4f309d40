package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the gate service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clients ClientsConfig `yaml:"clients"`
	Logging LoggingConfig `yaml:"logging"`
	Policy  PolicyConfig  `yaml:"policy"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ClientsConfig groups upstream integrations.
type ClientsConfig struct {
	Registry RegistryClientConfig `yaml:"registry"`
}

// RegistryClientConfig configures the pipeline registry that serves unit
// chains and upstream reports. An empty BaseURL disables lookups.
type RegistryClientConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	UnitsPath   string        `yaml:"unitsPath"`
	ReportsPath string        `yaml:"reportsPath"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PolicyConfig controls policy document loading and hot reload.
type PolicyConfig struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// CacheConfig controls Redis-backed caching. When disabled an in-process
// cache is used instead.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	UnitsTTL     time.Duration `yaml:"unitsTTL"`
	DecisionTTL  time.Duration `yaml:"decisionTTL"`
}

// HistoryConfig controls the SQLite decision log and its retention job.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	Retention     time.Duration `yaml:"retention"`
	PruneSchedule string        `yaml:"pruneSchedule"`
	HotspotSample int           `yaml:"hotspotSample"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_GATE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Address == "" && c.Server.HTTPAddress == "" {
		errs = append(errs, errors.New("server: at least one of address or httpAddress is required"))
	}
	if c.Server.GracefulTimeout < 0 {
		errs = append(errs, errors.New("server.gracefulTimeout must not be negative"))
	}
	if base := c.Clients.Registry.BaseURL; base != "" {
		if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("clients.registry.baseURL %q is not an absolute URL", base))
		}
	}
	if c.Policy.Watch && c.Policy.Path == "" {
		errs = append(errs, errors.New("policy.watch requires policy.path"))
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, errors.New("cache.addr is required when cache is enabled"))
	}
	if c.History.Enabled {
		if c.History.Path == "" {
			errs = append(errs, errors.New("history.path is required when history is enabled"))
		}
		if c.History.Retention < 0 {
			errs = append(errs, errors.New("history.retention must not be negative"))
		}
	}
	return errors.Join(errs...)
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			HTTPAddress:     ":8081",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Clients: ClientsConfig{
			Registry: RegistryClientConfig{
				UnitsPath:   "/api/v1/pipelines/units",
				ReportsPath: "/api/v1/pipelines/report",
				Timeout:     5 * time.Second,
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Policy: PolicyConfig{
			Path:     "configs/policy/default.yaml",
			Watch:    true,
			Debounce: 250 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			UnitsTTL:     30 * time.Second,
			DecisionTTL:  10 * time.Minute,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "data/gate-history.db",
			Retention:     30 * 24 * time.Hour,
			PruneSchedule: "@daily",
			HotspotSample: 500,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("MIRADOR_GATE_SERVER_ADDRESS", &cfg.Server.Address)
	envString("MIRADOR_GATE_HTTP_ADDRESS", &cfg.Server.HTTPAddress)
	envString("MIRADOR_GATE_METRICS_ADDRESS", &cfg.Server.MetricsAddress)
	envDuration("MIRADOR_GATE_GRACEFUL_TIMEOUT", &cfg.Server.GracefulTimeout)

	envString("MIRADOR_GATE_REGISTRY_URL", &cfg.Clients.Registry.BaseURL)
	envString("MIRADOR_GATE_REGISTRY_UNITS_PATH", &cfg.Clients.Registry.UnitsPath)
	envString("MIRADOR_GATE_REGISTRY_REPORTS_PATH", &cfg.Clients.Registry.ReportsPath)
	envDuration("MIRADOR_GATE_REGISTRY_TIMEOUT", &cfg.Clients.Registry.Timeout)

	envString("MIRADOR_GATE_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("MIRADOR_GATE_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	envString("MIRADOR_GATE_POLICY_PATH", &cfg.Policy.Path)
	envBool("MIRADOR_GATE_POLICY_WATCH", &cfg.Policy.Watch)
	envDuration("MIRADOR_GATE_POLICY_DEBOUNCE", &cfg.Policy.Debounce)

	envBool("MIRADOR_GATE_CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("MIRADOR_GATE_CACHE_ADDR", &cfg.Cache.Addr)
	envString("MIRADOR_GATE_CACHE_USERNAME", &cfg.Cache.Username)
	envString("MIRADOR_GATE_CACHE_PASSWORD", &cfg.Cache.Password)
	envInt("MIRADOR_GATE_CACHE_DB", &cfg.Cache.DB)
	envBool("MIRADOR_GATE_CACHE_TLS", &cfg.Cache.TLS)
	envDuration("MIRADOR_GATE_CACHE_DIAL_TIMEOUT", &cfg.Cache.DialTimeout)
	envDuration("MIRADOR_GATE_CACHE_READ_TIMEOUT", &cfg.Cache.ReadTimeout)
	envDuration("MIRADOR_GATE_CACHE_WRITE_TIMEOUT", &cfg.Cache.WriteTimeout)
	envInt("MIRADOR_GATE_CACHE_MAX_RETRIES", &cfg.Cache.MaxRetries)
	envDuration("MIRADOR_GATE_CACHE_UNITS_TTL", &cfg.Cache.UnitsTTL)
	envDuration("MIRADOR_GATE_CACHE_DECISION_TTL", &cfg.Cache.DecisionTTL)

	envBool("MIRADOR_GATE_HISTORY_ENABLED", &cfg.History.Enabled)
	envString("MIRADOR_GATE_HISTORY_PATH", &cfg.History.Path)
	envDuration("MIRADOR_GATE_HISTORY_RETENTION", &cfg.History.Retention)
	envString("MIRADOR_GATE_HISTORY_PRUNE_SCHEDULE", &cfg.History.PruneSchedule)
	envInt("MIRADOR_GATE_HISTORY_HOTSPOT_SAMPLE", &cfg.History.HotspotSample)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Unparseable values leave the current setting untouched.
func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
