package core

import (
	"fmt"
	"time"
)

// AdapterConfig holds configuration for connecting to a database.
// URL, when set, takes precedence over the discrete fields for network backends.
type AdapterConfig struct {
	Kind     Kind
	URL      string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// MaxConns caps the pool size of network backends. Zero means DefaultMaxConns.
	MaxConns int
	// ConnectTimeout bounds the initial connect and ping. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// InsecureTLS enables TLS without certificate verification.
	InsecureTLS bool

	Options map[string]string
}

// Connection defaults.
const (
	DefaultMaxConns       = 10
	DefaultConnectTimeout = 5 * time.Second
	DefaultSQLitePath     = "laundry.db"
)

// PoolSize returns the effective pool capacity.
func (c AdapterConfig) PoolSize() int {
	if c.MaxConns <= 0 {
		return DefaultMaxConns
	}
	return c.MaxConns
}

// Timeout returns the effective connect timeout.
func (c AdapterConfig) Timeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

// Target describes the connection for logs, never including the password.
func (c AdapterConfig) Target() string {
	switch c.Kind {
	case KindSQLite:
		return c.Path
	case KindPostgres, KindMySQL:
		if c.URL != "" {
			return "url"
		}
		return fmt.Sprintf("%s@%s:%d/%s", c.Username, c.Host, c.Port, c.Database)
	case KindUnknown:
		return ""
	default:
		return ""
	}
}
