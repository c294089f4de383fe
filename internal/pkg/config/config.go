package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Search    SearchConfig    `mapstructure:"search"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	AllowOrigins   string `mapstructure:"allow_origins"`
	RateLimit      int    `mapstructure:"rate_limit"`
}

// RoutingConfig points at the GraphHopper-compatible routing service.
type RoutingConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Profile      string `mapstructure:"profile"`
	Timeout      int    `mapstructure:"timeout"`
	CacheTTL     int    `mapstructure:"cache_ttl"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
}

func (r RoutingConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// SearchConfig holds the loop-search defaults.
type SearchConfig struct {
	Strategy          string  `mapstructure:"strategy"`
	Tolerance         float64 `mapstructure:"tolerance"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
	InterAttemptDelay int     `mapstructure:"inter_attempt_delay_ms"`
	RadiusFactor      float64 `mapstructure:"radius_factor"`
	RadiusShrink      float64 `mapstructure:"radius_shrink"`
	MinRadiusScale    float64 `mapstructure:"min_radius_scale"`
	BearingMode       string  `mapstructure:"bearing_mode"`
	BearingDrift      float64 `mapstructure:"bearing_drift"`
	MaxDistanceKm     float64 `mapstructure:"max_distance_km"`
	FallbackLat       float64 `mapstructure:"fallback_lat"`
	FallbackLon       float64 `mapstructure:"fallback_lon"`
}

func (s SearchConfig) Delay() time.Duration {
	return time.Duration(s.InterAttemptDelay) * time.Millisecond
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LOOPWALK_ROUTING_API_KEY → routing.api_key
	v.SetEnvPrefix("LOOPWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 40)
	v.SetDefault("server.request_timeout", 30)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("routing.base_url", "https://graphhopper.com/api/1")
	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.profile", "foot")
	v.SetDefault("routing.timeout", 10)
	v.SetDefault("routing.cache_ttl", 3600)
	v.SetDefault("routing.cache_enabled", true)
	v.SetDefault("search.strategy", "triangular")
	v.SetDefault("search.tolerance", 0.10)
	v.SetDefault("search.max_attempts", 5)
	v.SetDefault("search.inter_attempt_delay_ms", 1000)
	v.SetDefault("search.radius_factor", 0.16)
	v.SetDefault("search.radius_shrink", 0.12)
	v.SetDefault("search.min_radius_scale", 0.2)
	v.SetDefault("search.bearing_mode", "drift")
	v.SetDefault("search.bearing_drift", 45.0)
	v.SetDefault("search.max_distance_km", 42.2)
	v.SetDefault("search.fallback_lat", 51.505)
	v.SetDefault("search.fallback_lon", -0.09)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "loop-routes")
	v.SetDefault("temporal.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Routing.BaseURL == "" {
		errs = append(errs, "routing.base_url is required")
	}
	if c.Routing.Profile == "" {
		errs = append(errs, "routing.profile is required")
	}
	if c.Routing.Timeout <= 0 {
		errs = append(errs, "routing.timeout must be positive")
	}
	if c.Search.Tolerance <= 0 || c.Search.Tolerance >= 1 {
		errs = append(errs, fmt.Sprintf("search.tolerance must be in (0, 1), got %g", c.Search.Tolerance))
	}
	if c.Search.MaxAttempts < 1 || c.Search.MaxAttempts > 10 {
		errs = append(errs, fmt.Sprintf("search.max_attempts must be 1-10, got %d", c.Search.MaxAttempts))
	}
	if c.Search.InterAttemptDelay < 0 {
		errs = append(errs, "search.inter_attempt_delay_ms must not be negative")
	}
	if c.Search.RadiusFactor <= 0 {
		errs = append(errs, "search.radius_factor must be positive")
	}
	if c.Search.RadiusShrink < 0 || c.Search.RadiusShrink >= 1 {
		errs = append(errs, "search.radius_shrink must be in [0, 1)")
	}
	if c.Search.MinRadiusScale <= 0 || c.Search.MinRadiusScale > 1 {
		errs = append(errs, "search.min_radius_scale must be in (0, 1]")
	}
	if c.Search.BearingMode != "drift" && c.Search.BearingMode != "random" {
		errs = append(errs, fmt.Sprintf("search.bearing_mode must be drift or random, got %q", c.Search.BearingMode))
	}
	if c.Search.MaxDistanceKm <= 0 {
		errs = append(errs, "search.max_distance_km must be positive")
	}
	if c.Search.FallbackLat < -90 || c.Search.FallbackLat > 90 {
		errs = append(errs, "search.fallback_lat must be within [-90, 90]")
	}
	if c.Search.FallbackLon < -180 || c.Search.FallbackLon > 180 {
		errs = append(errs, "search.fallback_lon must be within [-180, 180]")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
