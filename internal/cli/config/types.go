// Package config loads laundrypos configuration from defaults, a YAML file,
// the environment and command-line flags, and converts it into the settings
// the database service consumes.
package config

import (
	"net/url"
	"time"

	"github.com/freshpress/laundrypos/internal/database"
	"github.com/freshpress/laundrypos/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	Environment string      `koanf:"environment" yaml:"environment"`
	LogLevel    string      `koanf:"log_level" yaml:"log_level"`
	LogFormat   string      `koanf:"log_format" yaml:"log_format"`
	Output      string      `koanf:"output" yaml:"output"`
	DB          DBConfig    `koanf:"db" yaml:"db"`
	Admin       AdminConfig `koanf:"admin" yaml:"admin"`
}

// DBConfig holds backend selection and connection settings.
type DBConfig struct {
	URL             string        `koanf:"url" yaml:"url,omitempty"`
	Type            string        `koanf:"type" yaml:"type,omitempty"`
	Host            string        `koanf:"host" yaml:"host,omitempty"`
	Port            int           `koanf:"port" yaml:"port,omitempty"`
	User            string        `koanf:"user" yaml:"user,omitempty"`
	Password        string        `koanf:"password" yaml:"password,omitempty"`
	Name            string        `koanf:"name" yaml:"name,omitempty"`
	SQLitePath      string        `koanf:"sqlite_path" yaml:"sqlite_path"`
	MaxConns        int           `koanf:"max_conns" yaml:"max_conns"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	SchemaDir       string        `koanf:"schema_dir" yaml:"schema_dir,omitempty"`
	SkipBootstrap   bool          `koanf:"skip_bootstrap" yaml:"skip_bootstrap"`
	StrictBootstrap bool          `koanf:"strict_bootstrap" yaml:"strict_bootstrap"`
}

// AdminConfig is the credential the bootstrap step keeps verifiable.
type AdminConfig struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
	HashCost int    `koanf:"hash_cost" yaml:"hash_cost"`
}

// Default configuration values.
const (
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultOutput         = "table"
	DefaultConfigFile     = "laundrypos.yaml"
	ProductionEnv         = "production"
	redactedPlaceholder   = "********"
	DefaultConnectTimeout = core.DefaultConnectTimeout
)

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Environment == ProductionEnv
}

// ToDatabaseConfig converts the loaded settings into the database service
// configuration.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		URL:             c.DB.URL,
		Type:            c.DB.Type,
		Host:            c.DB.Host,
		Port:            c.DB.Port,
		User:            c.DB.User,
		Password:        c.DB.Password,
		Name:            c.DB.Name,
		SQLitePath:      c.DB.SQLitePath,
		MaxConns:        c.DB.MaxConns,
		ConnectTimeout:  c.DB.ConnectTimeout,
		Production:      c.IsProduction(),
		SkipBootstrap:   c.DB.SkipBootstrap,
		StrictBootstrap: c.DB.StrictBootstrap,
		Bootstrap: database.BootstrapOptions{
			SchemaDir:     c.DB.SchemaDir,
			AdminUsername: c.Admin.Username,
			AdminPassword: c.Admin.Password,
			HashCost:      c.Admin.HashCost,
		},
	}
}

// Redacted returns a copy safe to print: passwords are masked, including
// the one embedded in a connection URL.
func (c *Config) Redacted() Config {
	out := *c
	if out.DB.Password != "" {
		out.DB.Password = redactedPlaceholder
	}
	if out.Admin.Password != "" {
		out.Admin.Password = redactedPlaceholder
	}
	if out.DB.URL != "" {
		if u, err := url.Parse(out.DB.URL); err == nil && u.User != nil {
			out.DB.URL = u.Redacted()
		}
	}
	return out
}
