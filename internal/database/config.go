package database

import (
	"time"

	"github.com/freshpress/laundrypos/pkg/adapters/postgres"
	"github.com/freshpress/laundrypos/pkg/core"
)

// Default bootstrap credential.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DefaultHashCost      = 10
)

// Config drives backend selection and bootstrap.
type Config struct {
	// URL is an explicit Postgres connection string. When set, failing to
	// reach it is fatal.
	URL string
	// Type optionally forces the probe order: "postgres" tries Postgres first
	// even without a URL, "sqlite" skips the network backends.
	Type string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	SQLitePath     string
	MaxConns       int
	ConnectTimeout time.Duration
	// Production enables TLS without certificate verification for URL connections.
	Production bool

	Bootstrap BootstrapOptions
	// SkipBootstrap binds a backend without applying schema or repairing credentials.
	SkipBootstrap bool
	// StrictBootstrap makes bootstrap failures fatal instead of logged.
	StrictBootstrap bool
}

// BootstrapOptions controls schema application and credential repair.
type BootstrapOptions struct {
	// SchemaDir, when set, is searched for schema.<backend>.sql instead of
	// using the embedded scripts.
	SchemaDir     string
	AdminUsername string
	AdminPassword string
	HashCost      int
}

func (o BootstrapOptions) withDefaults() BootstrapOptions {
	if o.AdminUsername == "" {
		o.AdminUsername = DefaultAdminUsername
	}
	if o.AdminPassword == "" {
		o.AdminPassword = DefaultAdminPassword
	}
	if o.HashCost == 0 {
		o.HashCost = DefaultHashCost
	}
	return o
}

func (c Config) postgres() core.AdapterConfig {
	port := c.Port
	if port == 0 {
		port = postgres.DefaultPort
	}
	user, name := c.User, c.Name
	if user == "" {
		user = postgres.DefaultUser
	}
	if name == "" {
		name = postgres.DefaultDatabase
	}
	return core.AdapterConfig{
		Kind:           core.KindPostgres,
		URL:            c.URL,
		Host:           c.Host,
		Port:           port,
		Database:       name,
		Username:       user,
		Password:       c.Password,
		MaxConns:       c.MaxConns,
		ConnectTimeout: c.ConnectTimeout,
		InsecureTLS:    c.Production && c.URL != "",
	}
}

func (c Config) mysql() core.AdapterConfig {
	return core.AdapterConfig{
		Kind:           core.KindMySQL,
		Host:           c.Host,
		Port:           c.Port,
		Database:       c.Name,
		Username:       c.User,
		Password:       c.Password,
		MaxConns:       c.MaxConns,
		ConnectTimeout: c.ConnectTimeout,
	}
}

func (c Config) sqlite() core.AdapterConfig {
	path := c.SQLitePath
	if path == "" {
		path = core.DefaultSQLitePath
	}
	return core.AdapterConfig{
		Kind:           core.KindSQLite,
		Path:           path,
		ConnectTimeout: c.ConnectTimeout,
	}
}
