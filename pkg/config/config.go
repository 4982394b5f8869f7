package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sublyime/ingestion/pkg/database"
)

// ConfigFile is read from the working directory when present.
const ConfigFile = "config.yaml"

// EnvLocal is the development environment; only it gets database fallbacks.
const EnvLocal = "local"

// Config holds all configuration for the catalog service.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"4000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database DatabaseConfig `yaml:"database"`
	CORS     CORSConfig     `yaml:"cors"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig describes the relational store holding the catalog.
// Server, Database and User have no defaults outside the local environment.
type DatabaseConfig struct {
	Driver                 string        `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	Server                 string        `yaml:"server" env:"DB_SERVER"`
	Port                   int           `yaml:"port" env:"DB_PORT"`
	Database               string        `yaml:"database" env:"DB_DATABASE"`
	User                   string        `yaml:"user" env:"DB_USER"`
	Password               string        `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Encrypt                bool          `yaml:"encrypt" env:"DB_ENCRYPT" env-default:"false"`
	TrustServerCertificate bool          `yaml:"trust_server_certificate" env:"DB_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	MaxConnections         int32         `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"25"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"15s"`
	QueryTimeout           time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT" env-default:"30s"`
	AutoMigrate            bool          `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
}

// CORSConfig lists the origins the admin front end may be served from.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// EventsConfig configures change notifications. An empty NATSURL disables them.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url" env:"EVENTS_NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"EVENTS_SUBJECT_PREFIX" env-default:"ingestion.data_sources"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `yaml:"json" env:"LOG_JSON" env-default:"false"`
}

// Load reads configuration from config.yaml, if present, with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(ConfigFile); err == nil {
		if err := cleanenv.ReadConfig(ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFile, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Env == EnvLocal {
		cfg.Database.applyLocalDefaults()
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultPort(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error

	switch database.Driver(c.Database.Driver) {
	case database.DriverPostgres, database.DriverSQLServer:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q",
			database.DriverPostgres, database.DriverSQLServer, c.Database.Driver))
	}

	if c.Env != EnvLocal {
		required := []struct{ name, value string }{
			{"DB_SERVER", c.Database.Server},
			{"DB_DATABASE", c.Database.Database},
			{"DB_USER", c.Database.User},
			{"DB_PASSWORD", c.Database.Password},
		}
		for _, r := range required {
			if r.value == "" {
				errs = append(errs, fmt.Errorf("%s is required outside the %s environment", r.name, EnvLocal))
			}
		}
	}

	if c.Database.MaxConnections <= 0 {
		errs = append(errs, errors.New("database.max_connections must be positive"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("database.query_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

func (c *DatabaseConfig) applyLocalDefaults() {
	if c.Server == "" {
		c.Server = "localhost"
	}
	if c.Database == "" {
		c.Database = "ingestion"
	}
	if c.User == "" {
		c.User = "ingestion"
	}
}

func defaultPort(driver string) int {
	if database.Driver(driver) == database.DriverSQLServer {
		return 1433
	}
	return 5432
}

// ConnectionString returns a postgres:// or sqlserver:// URL for the configured driver.
func (c *DatabaseConfig) ConnectionString() string {
	host := net.JoinHostPort(ResolveHostForDocker(c.Server), strconv.Itoa(c.Port))
	timeout := strconv.Itoa(int(c.ConnectTimeout.Seconds()))

	u := url.URL{
		User: url.UserPassword(c.User, c.Password),
		Host: host,
	}
	q := url.Values{}

	if database.Driver(c.Driver) == database.DriverSQLServer {
		u.Scheme = "sqlserver"
		q.Set("database", c.Database)
		q.Set("encrypt", strconv.FormatBool(c.Encrypt))
		q.Set("TrustServerCertificate", strconv.FormatBool(c.TrustServerCertificate))
		q.Set("connection timeout", timeout)
	} else {
		u.Scheme = "postgres"
		u.Path = "/" + c.Database
		q.Set("sslmode", c.sslMode())
		q.Set("connect_timeout", timeout)
	}

	u.RawQuery = q.Encode()
	return u.String()
}

func (c *DatabaseConfig) sslMode() string {
	switch {
	case !c.Encrypt:
		return "disable"
	case c.TrustServerCertificate:
		return "require"
	default:
		return "verify-full"
	}
}

// PoolConfig returns the settings the pool manager connects with.
func (c *DatabaseConfig) PoolConfig() *database.Config {
	return &database.Config{
		Driver:         database.Driver(c.Driver),
		URL:            c.ConnectionString(),
		MaxConnections: c.MaxConnections,
	}
}

// Describe renders the connection target for logs, without credentials.
func (c *DatabaseConfig) Describe() string {
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.User,
		net.JoinHostPort(c.Server, strconv.Itoa(c.Port)), c.Database)
}
