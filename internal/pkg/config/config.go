package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Police    PoliceConfig    `mapstructure:"police"`
	Map       MapConfig       `mapstructure:"map"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// PoliceConfig configures the data.police.uk client. A zero Timeout means
// requests are bounded only by the caller's context.
type PoliceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Rate      float64       `mapstructure:"rate"`
	Burst     int           `mapstructure:"burst"`
	CacheTTL  int           `mapstructure:"cache_ttl"`
	UserAgent string        `mapstructure:"user_agent"`
}

// MapConfig tunes interactive map sessions.
type MapConfig struct {
	DismissAfter time.Duration `mapstructure:"dismiss_after"`
	CloseMeters  float64       `mapstructure:"close_meters"`
	ClosePixels  float64       `mapstructure:"close_pixels"`
	HeatRadius   int           `mapstructure:"heat_radius"`
	DefaultMonth int           `mapstructure:"default_month"`
	IdleTTL      time.Duration `mapstructure:"idle_ttl"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Enabled  bool   `mapstructure:"enabled"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, url.QueryEscape(d.Password), d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	// .env is a convenience for local runs; real env vars win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CRIMESTAT_POLICE_BASE_URL → police.base_url
	v.SetEnvPrefix("CRIMESTAT")
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
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("police.base_url", "https://data.police.uk/api")
	v.SetDefault("police.timeout", 0)
	v.SetDefault("police.rate", 15)
	v.SetDefault("police.burst", 30)
	v.SetDefault("police.cache_ttl", 3600)
	v.SetDefault("police.user_agent", "crimestat/1.0")

	v.SetDefault("map.dismiss_after", 7*time.Second)
	v.SetDefault("map.close_meters", 500)
	v.SetDefault("map.close_pixels", 10)
	v.SetDefault("map.heat_radius", 25)
	v.SetDefault("map.default_month", 1)
	v.SetDefault("map.idle_ttl", 30*time.Minute)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "crimestat")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "crimestat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.enabled", true)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "crimestat-trends")
	v.SetDefault("temporal.enabled", true)

	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

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
	if u, err := url.Parse(c.Police.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("police.base_url must be an absolute URL, got %q", c.Police.BaseURL))
	}
	if c.Police.Timeout < 0 {
		errs = append(errs, "police.timeout must not be negative")
	}
	if c.Police.Rate <= 0 {
		errs = append(errs, "police.rate must be positive")
	}
	if c.Police.Burst <= 0 {
		errs = append(errs, "police.burst must be positive")
	}
	if c.Map.DismissAfter < 0 {
		errs = append(errs, "map.dismiss_after must not be negative")
	}
	if c.Map.IdleTTL < 0 {
		errs = append(errs, "map.idle_ttl must not be negative")
	}
	if c.Map.CloseMeters <= 0 || c.Map.ClosePixels <= 0 {
		errs = append(errs, "map.close_meters and map.close_pixels must be positive")
	}
	if c.Map.DefaultMonth < 1 || c.Map.DefaultMonth > 12 {
		errs = append(errs, fmt.Sprintf("map.default_month must be 1-12, got %d", c.Map.DefaultMonth))
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
		errs = append(errs, "temporal.host_port and temporal.task_queue are required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
