// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"music-proxy-go/internal/model"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/music-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config            string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host              string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port              int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	LogLevel          string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	APIMaxAttempts    int    `kong:"help='Max fetch attempts for the metadata API path (overrides config).',env='API_MAX_ATTEMPTS'"`
	APIRetryDelayMS   int    `kong:"help='Base retry delay in ms for the metadata API path (overrides config).',env='API_RETRY_DELAY_MS'"`
	AudioMaxAttempts  int    `kong:"help='Max fetch attempts for the audio path (overrides config).',env='AUDIO_MAX_ATTEMPTS'"`
	AudioRetryDelayMS int    `kong:"help='Base retry delay in ms for the audio path (overrides config).',env='AUDIO_RETRY_DELAY_MS'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	API     APIConfig     `toml:"api"`
	Audio   AudioConfig   `toml:"audio"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `toml:"host"`
	Port      int             `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting. Disabled by default;
// the proxy core never throttles callers on its own.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// APIConfig holds settings for the metadata API path.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryDelayMS   int    `toml:"retry_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // per attempt
}

// AudioConfig holds settings for the audio-forwarding path. Audio gets fewer
// attempts and a shorter delay than the API path: players are latency
// sensitive and can re-request a stream themselves.
type AudioConfig struct {
	AllowedDomain  string `toml:"allowed_domain"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryDelayMS   int    `toml:"retry_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // per attempt
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// reservedRoutes are paths served by fixed handlers; the metrics path must not
// shadow them. Every other path falls through to the proxy catch-all.
var reservedRoutes = []string{"/health", "/status", "/palette"}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/music-proxy/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
	if cli.APIMaxAttempts != 0 {
		c.API.MaxAttempts = cli.APIMaxAttempts
	}
	if cli.APIRetryDelayMS != 0 {
		c.API.RetryDelayMS = cli.APIRetryDelayMS
	}
	if cli.AudioMaxAttempts != 0 {
		c.Audio.MaxAttempts = cli.AudioMaxAttempts
	}
	if cli.AudioRetryDelayMS != 0 {
		c.Audio.RetryDelayMS = cli.AudioRetryDelayMS
	}
}

func (c *Config) validate() error {
	// API base URL: optional (a default exists) but must be absolute HTTP(S)
	// when set.
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil {
			return fmt.Errorf("api.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api.base_url must use HTTP or HTTPS; got %q", c.API.BaseURL)
		}
		if u.Host == "" {
			return fmt.Errorf("api.base_url has no host; got %q", c.API.BaseURL)
		}
	}

	// The audio allow-list domain is a bare hostname, not a URL.
	if d := c.Audio.AllowedDomain; d != "" {
		if strings.ContainsAny(d, "/:@ ") {
			return fmt.Errorf("audio.allowed_domain must be a bare hostname; got %q", d)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.API.MaxAttempts < 0 {
		return fmt.Errorf("api.max_attempts must be non-negative; got %d", c.API.MaxAttempts)
	}
	if c.API.RetryDelayMS < 0 {
		return fmt.Errorf("api.retry_delay_ms must be non-negative; got %d", c.API.RetryDelayMS)
	}
	if c.API.TimeoutSeconds < 0 {
		return fmt.Errorf("api.timeout_seconds must be non-negative; got %d", c.API.TimeoutSeconds)
	}
	if c.Audio.MaxAttempts < 0 {
		return fmt.Errorf("audio.max_attempts must be non-negative; got %d", c.Audio.MaxAttempts)
	}
	if c.Audio.RetryDelayMS < 0 {
		return fmt.Errorf("audio.retry_delay_ms must be non-negative; got %d", c.Audio.RetryDelayMS)
	}
	if c.Audio.TimeoutSeconds < 0 {
		return fmt.Errorf("audio.timeout_seconds must be non-negative; got %d", c.Audio.TimeoutSeconds)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, MaxAttempts, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0
// in the config file therefore results in the default port (8000).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://music-api.gdstudio.xyz/api.php"
	}
	if c.API.MaxAttempts == 0 {
		c.API.MaxAttempts = 3
	}
	if c.API.RetryDelayMS == 0 {
		c.API.RetryDelayMS = 1000
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.Audio.AllowedDomain == "" {
		c.Audio.AllowedDomain = "kuwo.cn"
	}
	if c.Audio.MaxAttempts == 0 {
		c.Audio.MaxAttempts = 2
	}
	if c.Audio.RetryDelayMS == 0 {
		c.Audio.RetryDelayMS = 500
	}
	if c.Audio.TimeoutSeconds == 0 {
		c.Audio.TimeoutSeconds = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RetryPolicy returns the retry policy for the metadata API path.
func (c *APIConfig) RetryPolicy() model.RetryPolicy {
	return model.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      time.Duration(c.RetryDelayMS) * time.Millisecond,
		AttemptTimeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// RetryPolicy returns the retry policy for the audio path.
func (c *AudioConfig) RetryPolicy() model.RetryPolicy {
	return model.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		BaseDelay:      time.Duration(c.RetryDelayMS) * time.Millisecond,
		AttemptTimeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}
