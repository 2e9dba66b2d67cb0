package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig locates the analytics database. Driver may be left empty, in
// which case it is inferred from Port.
type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AnalyticsConfig struct {
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	GroupByColumns []string      `mapstructure:"group_by_columns"`
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// ResolveDriver returns the configured driver, or the one implied by the
// well-known port of the server.
func (c DBConfig) ResolveDriver() (string, error) {
	switch strings.ToLower(c.Driver) {
	case DriverMySQL:
		return DriverMySQL, nil
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres, nil
	case DriverSQLite, "sqlite":
		return DriverSQLite, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported db driver %q", c.Driver)
	}

	switch c.Port {
	case 3306:
		return DriverMySQL, nil
	case 5432:
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("cannot infer db driver from port %d; set db.driver", c.Port)
	}
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// every key needs a default for AutomaticEnv to see it during Unmarshal
	v.SetDefault("db.driver", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", "")
	v.SetDefault("db.path", "file:analytics.db?cache=shared&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("analytics.query_timeout", 15*time.Second)
	v.SetDefault("analytics.group_by_columns", []string{"ref_app", "tier"})
	v.SetDefault("analytics.default_limit", 10)
	v.SetDefault("analytics.max_limit", 100)

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "gateway-analytics-api")
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	driver, err := c.DB.ResolveDriver()
	if err != nil {
		errs = append(errs, err)
	}
	if driver != DriverSQLite && (c.DB.Port < 1 || c.DB.Port > 65535) {
		errs = append(errs, fmt.Errorf("db.port %d out of range", c.DB.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Analytics.QueryTimeout <= 0 {
		errs = append(errs, errors.New("analytics.query_timeout must be positive"))
	}
	if len(c.Analytics.GroupByColumns) == 0 {
		errs = append(errs, errors.New("analytics.group_by_columns must not be empty"))
	}
	if c.Analytics.DefaultLimit < 1 || c.Analytics.MaxLimit < c.Analytics.DefaultLimit {
		errs = append(errs, fmt.Errorf("analytics limits invalid: default %d, max %d",
			c.Analytics.DefaultLimit, c.Analytics.MaxLimit))
	}
	if c.Breaker.Enabled && (c.Breaker.FailureThreshold == 0 || c.Breaker.Timeout <= 0) {
		errs = append(errs, errors.New("breaker.failure_threshold and breaker.timeout must be positive"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.requests_per_second and rate_limit.burst must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
