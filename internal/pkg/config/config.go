package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Nominatim NominatimConfig `mapstructure:"nominatim"`
	Search    SearchConfig    `mapstructure:"search"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort   string        `mapstructure:"host_port"`
	Namespace  string        `mapstructure:"namespace"`
	TaskQueue  string        `mapstructure:"task_queue"`
	AckTimeout time.Duration `mapstructure:"ack_timeout"`
	Enabled    bool          `mapstructure:"enabled"`
}

// OverpassConfig configures the POI provider client.
type OverpassConfig struct {
	URL         string        `mapstructure:"url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// NominatimConfig configures the reverse geocoder.
type NominatimConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SearchConfig tunes the expanding-radius search and bundle assembly.
type SearchConfig struct {
	Radii           []int             `mapstructure:"radii"`
	TopN            int               `mapstructure:"top_n"`
	Budget          time.Duration     `mapstructure:"budget"`
	Fallbacks       map[string]string `mapstructure:"fallbacks"`
	EmergencyNumber string            `mapstructure:"emergency_number"`
	CacheTTL        int               `mapstructure:"cache_ttl"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GIGGUARD_OVERPASS_URL → overpass.url
	v.SetEnvPrefix("GIGGUARD")
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
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gigguard")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "gigguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "sos-escalation")
	v.SetDefault("temporal.ack_timeout", 10*time.Minute)
	v.SetDefault("temporal.enabled", false)

	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "GigGuard_Safety_App/2.1")
	v.SetDefault("overpass.timeout", 20*time.Second)
	v.SetDefault("overpass.max_attempts", 3)
	v.SetDefault("overpass.retry_delay", time.Second)
	v.SetDefault("nominatim.url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "GigGuard")
	v.SetDefault("nominatim.timeout", 5*time.Second)

	v.SetDefault("search.radii", []int{20000, 50000})
	v.SetDefault("search.top_n", 5)
	v.SetDefault("search.budget", 45*time.Second)
	v.SetDefault("search.fallbacks", map[string]string{"hospital": "clinic"})
	v.SetDefault("search.emergency_number", "108")
	v.SetDefault("search.cache_ttl", 300)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
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
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Temporal.Enabled && c.Temporal.AckTimeout <= 0 {
		errs = append(errs, "temporal.ack_timeout must be positive")
	}

	if c.Overpass.URL == "" {
		errs = append(errs, "overpass.url is required")
	}
	if c.Overpass.UserAgent == "" {
		errs = append(errs, "overpass.user_agent is required")
	}
	if c.Overpass.MaxAttempts < 1 || c.Overpass.MaxAttempts > 5 {
		errs = append(errs, fmt.Sprintf("overpass.max_attempts must be 1-5, got %d", c.Overpass.MaxAttempts))
	}
	if c.Overpass.Timeout <= 0 {
		errs = append(errs, "overpass.timeout must be positive")
	}
	if c.Overpass.RetryDelay < 0 {
		errs = append(errs, "overpass.retry_delay must not be negative")
	}
	if c.Nominatim.URL == "" {
		errs = append(errs, "nominatim.url is required")
	}
	if c.Nominatim.Timeout <= 0 {
		errs = append(errs, "nominatim.timeout must be positive")
	}

	if len(c.Search.Radii) == 0 {
		errs = append(errs, "search.radii must not be empty")
	}
	for i, r := range c.Search.Radii {
		if r <= 0 {
			errs = append(errs, fmt.Sprintf("search.radii[%d] must be positive, got %d", i, r))
		}
		if i > 0 && r <= c.Search.Radii[i-1] {
			errs = append(errs, "search.radii must be strictly increasing")
			break
		}
	}
	if c.Search.TopN < 1 {
		errs = append(errs, "search.top_n must be at least 1")
	}
	if c.Search.Budget <= 0 {
		errs = append(errs, "search.budget must be positive")
	}
	if c.Search.EmergencyNumber == "" {
		errs = append(errs, "search.emergency_number is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
