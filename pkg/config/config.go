package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultRuns is the default number of executions per case.
	DefaultRuns = 3

	// DefaultResultsDir is the default directory for run summary files.
	DefaultResultsDir = "./results"

	// DefaultAPIListen is the default listen address of the history API.
	DefaultAPIListen = ":8080"

	// DefaultHistoryPath is the default sqlite history database path.
	DefaultHistoryPath = "./querybench-history.db"

	// envPrefix namespaces environment variable overrides, e.g.
	// QUERYBENCH_BENCHMARK_RUNS=5.
	envPrefix = "QUERYBENCH"
)

// Config is the root configuration for querybench.
type Config struct {
	Global    GlobalConfig    `yaml:"global" mapstructure:"global"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Reporting ReportingConfig `yaml:"reporting" mapstructure:"reporting"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ServerConfig identifies the data-query endpoint under test.
type ServerConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// BenchmarkConfig contains benchmark-specific settings.
type BenchmarkConfig struct {
	Runs        int    `yaml:"runs" mapstructure:"runs"`
	CasesFile   string `yaml:"cases_file" mapstructure:"cases_file"`
	Start       string `yaml:"start" mapstructure:"start"`
	End         string `yaml:"end" mapstructure:"end"`
	Description string `yaml:"description" mapstructure:"description"`
	ResultsDir  string `yaml:"results_dir" mapstructure:"results_dir"`
}

// ReportingConfig configures result sinks beyond the console.
type ReportingConfig struct {
	Remote RemoteSinkConfig `yaml:"remote" mapstructure:"remote"`
}

// RemoteSinkConfig configures the remote structured-event sink.
type RemoteSinkConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	URL     string `yaml:"url" mapstructure:"url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// HistoryConfig configures the local run history database.
type HistoryConfig struct {
	Enabled  bool           `yaml:"enabled" mapstructure:"enabled"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig selects and configures the history database driver.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// SQLiteConfig for the sqlite driver.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig for the postgres driver.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// ArchiveConfig configures the optional results archive.
type ArchiveConfig struct {
	S3 S3ArchiveConfig `yaml:"s3" mapstructure:"s3"`
}

// S3ArchiveConfig configures S3-compatible storage for run summaries.
type S3ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	Region          string `yaml:"region" mapstructure:"region"`
	EndpointURL     string `yaml:"endpoint_url" mapstructure:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// APIConfig configures the history API server.
type APIConfig struct {
	Listen    string          `yaml:"listen" mapstructure:"listen"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CORSConfig for the history API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig for the history API.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// Load reads the optional configuration file and applies QUERYBENCH_*
// environment variable overrides. An empty path yields a default-valued
// configuration (the CLI flags supply the rest).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values. Registering keys here also makes
// them overridable from the environment without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("server.url", "")
	v.SetDefault("server.api_key", "")
	v.SetDefault("benchmark.runs", DefaultRuns)
	v.SetDefault("benchmark.cases_file", "")
	v.SetDefault("benchmark.start", "")
	v.SetDefault("benchmark.end", "")
	v.SetDefault("benchmark.description", "")
	v.SetDefault("benchmark.results_dir", DefaultResultsDir)
	v.SetDefault("reporting.remote.enabled", false)
	v.SetDefault("reporting.remote.url", "")
	v.SetDefault("reporting.remote.api_key", "")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.database.driver", "sqlite")
	v.SetDefault("history.database.sqlite.path", DefaultHistoryPath)
	v.SetDefault("archive.s3.enabled", false)
	v.SetDefault("api.listen", DefaultAPIListen)
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.requests_per_minute", 120)
}

// Validate checks the configuration ahead of a bench run. Everything here
// is rejected before any query executes.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server url is required")
	}

	if c.Benchmark.Runs < 1 {
		return fmt.Errorf("benchmark runs must be at least 1, got %d", c.Benchmark.Runs)
	}

	if c.Benchmark.Start == "" || c.Benchmark.End == "" {
		return fmt.Errorf("benchmark start and end times are required")
	}

	start, end, err := c.TimeRange()
	if err != nil {
		return err
	}

	if !end.After(start) {
		return fmt.Errorf("benchmark end %s must be after start %s",
			c.Benchmark.End, c.Benchmark.Start)
	}

	if c.Reporting.Remote.Enabled && c.Reporting.Remote.URL == "" {
		return fmt.Errorf("reporting.remote.url is required when the remote sink is enabled")
	}

	if c.History.Enabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.Archive.S3.Enabled && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when the archive is enabled")
	}

	return nil
}

// ValidateAPI checks the configuration for the history API server.
func (c *Config) ValidateAPI() error {
	if c.API.Listen == "" {
		return fmt.Errorf("api listen address is required")
	}

	if c.API.RateLimit.Enabled && c.API.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("api.rate_limit.requests_per_minute must be at least 1")
	}

	return c.validateDatabase()
}

// validateDatabase checks the history database section.
func (c *Config) validateDatabase() error {
	switch c.History.Database.Driver {
	case "", "sqlite":
		if c.History.Database.SQLite.Path == "" {
			return fmt.Errorf("history.database.sqlite.path is required")
		}
	case "postgres":
		pg := c.History.Database.Postgres
		if pg.Host == "" || pg.Database == "" {
			return fmt.Errorf("history.database.postgres requires host and database")
		}
	default:
		return fmt.Errorf("unsupported history database driver %q", c.History.Database.Driver)
	}

	return nil
}

// TimeRange parses the configured query time range.
func (c *Config) TimeRange() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, c.Benchmark.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"parsing benchmark start %q: %w", c.Benchmark.Start, err)
	}

	end, err = time.Parse(time.RFC3339, c.Benchmark.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"parsing benchmark end %q: %w", c.Benchmark.End, err)
	}

	return start, end, nil
}
