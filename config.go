package goSession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/transport"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Store     StoreConfig     `yaml:"store"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
	Routes    RoutesConfig    `yaml:"routes"`
	Session   SessionConfig   `yaml:"session"`
	Transport TransportConfig `yaml:"transport"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goSession APIs.
//
// Leeway widens the expiry check: a token is valid while now < exp + Leeway.
type JWTConfig struct {
	Leeway time.Duration `yaml:"leeway"`
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreBackend selects the persistence backend for credentials.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// StoreConfig defines a public type used by goSession APIs.
//
// RedisAddrs is used only when Backend is "redis" and no client was supplied
// through [Builder.WithRedis]. A zero KeyTTL keeps keys until they are cleared.
type StoreConfig struct {
	Backend     StoreBackend  `yaml:"backend"`
	RedisAddrs  []string      `yaml:"redis_addrs"`
	RedisPrefix string        `yaml:"redis_prefix"`
	KeyTTL      time.Duration `yaml:"key_ttl"`
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig defines a public type used by goSession APIs.
//
// LoginPath and RefreshPath may contain "{domain}".
type EndpointsConfig struct {
	BaseURL     string        `yaml:"base_url"`
	LoginPath   string        `yaml:"login_path"`
	RefreshPath string        `yaml:"refresh_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig defines a public type used by goSession APIs.
type RoutesConfig struct {
	UserLogin     string `yaml:"user_login"`
	VendorLogin   string `yaml:"vendor_login"`
	AdminLogin    string `yaml:"admin_login"`
	NotAuthorized string `yaml:"not_authorized"`
}

// Paths converts the routes to guard redirect paths.
func (r RoutesConfig) Paths() middleware.Paths {
	return middleware.Paths{
		UserLogin:     r.UserLogin,
		VendorLogin:   r.VendorLogin,
		AdminLogin:    r.AdminLogin,
		NotAuthorized: r.NotAuthorized,
	}
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goSession APIs.
//
// With ExclusiveLogin a successful login in one domain logs out the other two.
type SessionConfig struct {
	ExclusiveLogin bool `yaml:"exclusive_login"`
}

// TransportConfig defines a public type used by goSession APIs.
type TransportConfig struct {
	RequestIDHeader string `yaml:"request_id_header"`
}

// AuditConfig defines a public type used by goSession APIs.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig defines a public type used by goSession APIs.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LoggingConfig is used when no logger is passed to [Builder.WithLogger].
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock configuration. Endpoints.BaseURL must still
// be set before building.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	paths := middleware.DefaultPaths()
	return Config{
		JWT: JWTConfig{
			Leeway: 0,
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: "gosession",
		},
		Endpoints: EndpointsConfig{
			LoginPath:   refresh.DefaultLoginPath,
			RefreshPath: refresh.DefaultRefreshPath,
			Timeout:     10 * time.Second,
		},
		Routes: RoutesConfig{
			UserLogin:     paths.UserLogin,
			VendorLogin:   paths.VendorLogin,
			AdminLogin:    paths.AdminLogin,
			NotAuthorized: paths.NotAuthorized,
		},
		Session: SessionConfig{
			ExclusiveLogin: true,
		},
		Transport: TransportConfig{
			RequestIDHeader: transport.DefaultRequestIDHeader,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Store.RedisAddrs != nil {
		out.Store.RedisAddrs = append([]string(nil), cfg.Store.RedisAddrs...)
	}
	return out
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}
	if c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be <= 2m")
	}

	// Store
	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		return errors.New("Store Backend must be 'memory' or 'redis'")
	}
	if c.Store.KeyTTL < 0 {
		return errors.New("Store KeyTTL must be >= 0")
	}
	if strings.ContainsAny(c.Store.RedisPrefix, " \t\r\n") {
		return errors.New("Store RedisPrefix must not contain whitespace")
	}

	// Endpoints
	base, err := url.Parse(strings.TrimSpace(c.Endpoints.BaseURL))
	if c.Endpoints.BaseURL == "" || err != nil || base.Scheme == "" || base.Host == "" {
		return errors.New("Endpoints BaseURL must be an absolute URL")
	}
	if !strings.HasPrefix(c.Endpoints.LoginPath, "/") {
		return errors.New("Endpoints LoginPath must start with '/'")
	}
	if !strings.HasPrefix(c.Endpoints.RefreshPath, "/") {
		return errors.New("Endpoints RefreshPath must start with '/'")
	}
	if c.Endpoints.Timeout <= 0 {
		return errors.New("Endpoints Timeout must be > 0")
	}

	// Routes
	routes := []struct{ name, path string }{
		{"UserLogin", c.Routes.UserLogin},
		{"VendorLogin", c.Routes.VendorLogin},
		{"AdminLogin", c.Routes.AdminLogin},
		{"NotAuthorized", c.Routes.NotAuthorized},
	}
	for _, r := range routes {
		if !strings.HasPrefix(r.path, "/") {
			return fmt.Errorf("Routes %s must start with '/'", r.name)
		}
	}

	// Transport
	if strings.TrimSpace(c.Transport.RequestIDHeader) == "" {
		return errors.New("Transport RequestIDHeader must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Logging
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("Logging Level is invalid: %v", err)
	}

	return nil
}
