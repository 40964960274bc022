package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freshpress/laundrypos/internal/database"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Context keys for values the root command hands to subcommands.
type (
	loggerKey struct{}
	configKey struct{}
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix namespaces structured environment overrides, e.g.
// LAUNDRYPOS_DB__MAX_CONNS=20 sets db.max_conns.
const EnvPrefix = "LAUNDRYPOS_"

// legacyEnv maps the deployment's plain environment names to config keys.
var legacyEnv = map[string]string{
	"DATABASE_URL": "db.url",
	"DB_TYPE":      "db.type",
	"DB_HOST":      "db.host",
	"DB_PORT":      "db.port",
	"DB_USER":      "db.user",
	"DB_PASSWORD":  "db.password",
	"DB_NAME":      "db.name",
	"SQLITE_PATH":  "db.sqlite_path",
	"NODE_ENV":     "environment",
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"database-url": "db.url",
	"db-type":      "db.type",
	"sqlite-path":  "db.sqlite_path",
	"schema-dir":   "db.schema_dir",
	"max-conns":    "db.max_conns",
	"env":          "environment",
	"log-level":    "log_level",
	"log-format":   "log_format",
}

// pathFlags hold filesystem paths that are made absolute relative to the
// working directory instead of the project root.
var pathFlags = []string{"sqlite-path", "schema-dir"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

func defaults() map[string]any {
	return map[string]any{
		"environment":         DefaultEnv,
		"log_level":           DefaultLogLevel,
		"log_format":          DefaultLogFormat,
		"output":              DefaultOutput,
		"db.sqlite_path":      core.DefaultSQLitePath,
		"db.max_conns":        core.DefaultMaxConns,
		"db.connect_timeout":  DefaultConnectTimeout.String(),
		"db.skip_bootstrap":   false,
		"db.strict_bootstrap": false,
		"admin.username":      database.DefaultAdminUsername,
		"admin.password":      database.DefaultAdminPassword,
		"admin.hash_cost":     database.DefaultHashCost,
	}
}

// configExistsIn checks if a laundrypos config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"laundrypos.yaml", "laundrypos.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a laundrypos config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot returns the directory of the explicit config file, the
// nearest ancestor holding laundrypos.yaml, or the working directory.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(cfgFile)
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, absolute or the in-memory marker.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// loadDotEnv copies a .env file from dir into the process environment.
// Variables that are already set win.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, the config file, a .env
// file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile)

	if err := loadDotEnv(projectRoot); err != nil {
		return nil, err
	}

	// Flag paths are relative to where the command was run.
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if v := f.Value.String(); v != "" && v != ":memory:" {
					abs, err := filepath.Abs(v)
					if err == nil {
						v = abs
					}
					flagPaths[flagKeys[name]] = v
				}
			}
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		for _, name := range []string{"laundrypos.yaml", "laundrypos.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Environment: plain deployment names first, then LAUNDRYPOS_ overrides.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Expand ${VAR} references and anchor relative paths at the project root.
	cfg.DB.URL = expandEnvVars(cfg.DB.URL)
	cfg.DB.User = expandEnvVars(cfg.DB.User)
	cfg.DB.Password = expandEnvVars(cfg.DB.Password)
	cfg.Admin.Password = expandEnvVars(cfg.Admin.Password)

	if v, ok := flagPaths["db.sqlite_path"]; ok {
		cfg.DB.SQLitePath = v
	} else {
		cfg.DB.SQLitePath = resolvePathRelativeTo(cfg.DB.SQLitePath, projectRoot)
	}
	if v, ok := flagPaths["db.schema_dir"]; ok {
		cfg.DB.SchemaDir = v
	} else {
		cfg.DB.SchemaDir = resolvePathRelativeTo(cfg.DB.SchemaDir, projectRoot)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.Output = strings.ToLower(cfg.Output)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the configuration stored by WithConfig.
func FromContext(ctx context.Context) (*Config, bool) {
	if ctx == nil {
		return nil, false
	}
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok && cfg != nil
}

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}
