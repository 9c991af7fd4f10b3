package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v2"

	"github.com/codymoss/hopgate/urlutil"
)

const (
	// DefaultGatewayDomain is used when no gateway domain is configured or
	// the configured value is not an absolute URL.
	DefaultGatewayDomain = "https://gw.hopgate.dev"

	// DefaultPlatformFile is the platform registry file checked when no
	// registry source is configured.
	DefaultPlatformFile = "./platforms.yaml"
)

// Config is the top-level configuration for the gateway URL service.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Registry RegistryConfig `yaml:"registry"`
	Match    MatchConfig    `yaml:"match"`
	Server   ServerConfig   `yaml:"server"`
}

// New returns a Config with sensible defaults.
func New() *Config {
	return &Config{
		Registry: RegistryConfig{
			Path:  DefaultPlatformFile,
			Watch: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// GatewayConfig names the accelerating gateway that recognized URLs are
// rewritten to point at.
type GatewayConfig struct {
	Domain string `yaml:"domain,omitempty"`
}

// GetDomain returns the configured gateway domain, falling back to the
// default when unset or not an absolute URL.
func (g *GatewayConfig) GetDomain() string {
	if g.Domain == "" {
		return DefaultGatewayDomain
	}
	if _, err := urlutil.ParseAndValidate(g.Domain); err != nil {
		return DefaultGatewayDomain
	}
	return g.Domain
}

// RegistryConfig controls where the platform registry comes from and how
// it is refreshed.
type RegistryConfig struct {
	// Path of a local platform file.
	Path string `yaml:"path,omitempty"`
	// URL of a remote platform document. Takes precedence over Path.
	URL string `yaml:"url,omitempty"`
	// Watch reloads a local platform file when it changes.
	Watch bool `yaml:"watch,omitempty"`
	// RefreshInterval is how often a remote document is re-fetched.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	// MinRefreshInterval throttles forced refreshes via the API.
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval,omitempty"`
	Cache              CacheConfig   `yaml:"cache"`
	Retry              RetryConfig   `yaml:"retry"`
}

// GetRefreshInterval returns the refresh interval with a default of 15 minutes.
func (r *RegistryConfig) GetRefreshInterval() time.Duration {
	if r.RefreshInterval > 0 {
		return r.RefreshInterval
	}
	return 15 * time.Minute
}

// CacheConfig defines caching for the remote registry document.
type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl,omitempty"`
	StaleTime time.Duration `yaml:"stale_time,omitempty"`
}

// RetryConfig defines retry and backoff behavior for remote registry fetches.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
}

// MatchConfig controls platform detection behavior.
type MatchConfig struct {
	// PublicSuffix switches the base-domain tier to public-suffix-aware
	// comparison. Off by default for compatibility with the naive
	// last-two-labels heuristic.
	PublicSuffix bool `yaml:"public_suffix,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string          `yaml:"addr,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// GetAddr returns the listen address with a default of :8080.
func (s *ServerConfig) GetAddr() string {
	if s.Addr != "" {
		return s.Addr
	}
	return ":8080"
}

// RateLimitConfig defines per-IP request limiting for the API.
type RateLimitConfig struct {
	Requests int           `yaml:"requests,omitempty"`
	Window   time.Duration `yaml:"window,omitempty"`
}

// GetRequests returns the request limit with a default of 100.
func (r *RateLimitConfig) GetRequests() int {
	if r.Requests > 0 {
		return r.Requests
	}
	return 100
}

// GetWindow returns the limiting window with a default of 1 minute.
func (r *RateLimitConfig) GetWindow() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return time.Minute
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Gateway.Domain != "" {
		if _, err := urlutil.ParseAndValidate(c.Gateway.Domain); err != nil {
			return fmt.Errorf("gateway.domain: %w", err)
		}
	}

	if c.Registry.Path == "" && c.Registry.URL == "" {
		return fmt.Errorf("registry: either 'path' or 'url' must be set")
	}
	if c.Registry.URL != "" {
		if _, err := urlutil.ParseAndValidate(c.Registry.URL); err != nil {
			return fmt.Errorf("registry.url: %w", err)
		}
	}
	if c.Registry.RefreshInterval < 0 {
		return fmt.Errorf("registry: 'refresh_interval' must be >= 0")
	}

	if err := c.validateRetry(c.Registry.Retry); err != nil {
		return err
	}

	if c.Server.RateLimit.Requests < 0 {
		return fmt.Errorf("server.rate_limit: 'requests' must be >= 0")
	}
	if c.Server.RateLimit.Window < 0 {
		return fmt.Errorf("server.rate_limit: 'window' must be >= 0")
	}

	return nil
}

func (c *Config) validateRetry(r RetryConfig) error {
	if r.Multiplier > 0 && r.Multiplier < 1.0 {
		return fmt.Errorf("registry.retry: 'multiplier' must be >= 1.0 (got %.2f)", r.Multiplier)
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("registry.retry: 'max_retries' must be >= 0")
	}
	if r.MaxDelay > 0 && r.InitialDelay > r.MaxDelay {
		return fmt.Errorf("registry.retry: 'initial_delay' (%s) cannot be greater than 'max_delay' (%s)",
			r.InitialDelay, r.MaxDelay)
	}
	return nil
}
