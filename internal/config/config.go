package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultConfigFile       = "migrate.yml"
	DefaultMigrationsDir    = "./migrations"
	DefaultLockTimeout      = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultTargetPGVersion  = 14
	DefaultFormat           = "text"
	DefaultLedger           = true
	DefaultPingInterval     = 10 * time.Minute
	DefaultEnvFile          = ".env"

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "MIGRATE_"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	LockTimeout      time.Duration `env:"LOCK_TIMEOUT"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT"`
	TargetPGVersion  int           `env:"TARGET_PG_VERSION"`
	Format           string        `env:"FORMAT"`
	Ledger           bool          `env:"LEDGER"`
	PingURL          string        `env:"PING_URL"`
	PingInterval     time.Duration `env:"PING_INTERVAL"`
}

// fileConfig is the raw file representation with string durations. The
// same struct decodes YAML and TOML.
type fileConfig struct {
	DatabaseURL      string `yaml:"database_url"      toml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"    toml:"migrations_dir"`
	LockTimeout      string `yaml:"lock_timeout"      toml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout" toml:"statement_timeout"`
	TargetPGVersion  int    `yaml:"target_pg_version" toml:"target_pg_version"`
	Format           string `yaml:"format"            toml:"format"`
	Ledger           *bool  `yaml:"ledger"            toml:"ledger"`
	PingURL          string `yaml:"ping_url"          toml:"ping_url"`
	PingInterval     string `yaml:"ping_interval"     toml:"ping_interval"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:    DefaultMigrationsDir,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		TargetPGVersion:  DefaultTargetPGVersion,
		Format:           DefaultFormat,
		Ledger:           DefaultLedger,
		PingInterval:     DefaultPingInterval,
	}
}

// Load reads a YAML or TOML configuration file, chosen by extension, and
// returns a Config. If allowMissing is true and the file does not exist,
// defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw fileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromFile(&raw)
}

// fromFile converts the raw file representation to a Config with defaults applied.
func fromFile(raw *fileConfig) (*Config, error) {
	cfg := New()

	if raw.DatabaseURL != "" {
		cfg.DatabaseURL = raw.DatabaseURL
	}

	if raw.MigrationsDir != "" {
		cfg.MigrationsDir = raw.MigrationsDir
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"lock_timeout", raw.LockTimeout, &cfg.LockTimeout},
		{"statement_timeout", raw.StatementTimeout, &cfg.StatementTimeout},
		{"ping_interval", raw.PingInterval, &cfg.PingInterval},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", d.name, d.value, err)
		}

		*d.dst = v
	}

	if raw.TargetPGVersion != 0 {
		cfg.TargetPGVersion = raw.TargetPGVersion
	}

	if raw.Format != "" {
		cfg.Format = raw.Format
	}

	if raw.Ledger != nil {
		cfg.Ledger = *raw.Ledger
	}

	if raw.PingURL != "" {
		cfg.PingURL = raw.PingURL
	}

	return cfg, nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Unset variables leave the current value in place.
func MergeEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing %s environment: %w", EnvPrefix, err)
	}

	return nil
}

// LoadDotenv loads variables from a dotenv file into the process
// environment. Variables already set are not overridden. A missing file is
// ignored when allowMissing is true.
func LoadDotenv(path string, allowMissing bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && allowMissing {
			return nil
		}

		return fmt.Errorf("reading env file %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}
