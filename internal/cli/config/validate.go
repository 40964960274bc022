package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freshpress/laundrypos/pkg/core"
	"golang.org/x/crypto/bcrypt"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
	validOutputs    = []string{"table", "json", "csv", "md"}
)

// Validate checks if the configuration is valid. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if c.DB.Type != "" {
		if _, err := core.ParseKind(c.DB.Type); err != nil {
			errs = append(errs, fmt.Errorf("db.type: %w\nHint: Set DB_TYPE or db.type in %s to one of: %s",
				err, DefaultConfigFile, kindNames()))
		}
	}
	if c.DB.Port < 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("db.port: %d is out of range", c.DB.Port))
	}
	if c.DB.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("db.max_conns: must not be negative, got %d", c.DB.MaxConns))
	}
	if c.DB.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("db.connect_timeout: must not be negative, got %s", c.DB.ConnectTimeout))
	}
	if cost := c.Admin.HashCost; cost != 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
		errs = append(errs, fmt.Errorf("admin.hash_cost: %d is outside %d..%d", cost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if err := oneOf("log_level", c.LogLevel, validLogLevels); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("log_format", c.LogFormat, validLogFormats); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("output", c.Output, validOutputs); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func oneOf(key, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q (expected one of: %s)", key, value, strings.Join(allowed, ", "))
}

func kindNames() string {
	kinds := core.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
