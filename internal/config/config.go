// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package config loads Inkwell configuration from defaults, a YAML file,
// INKWELL_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/logging"
	"github.com/inkwell/inkwell/internal/xdg"
)

// EnvPrefix prefixes every environment variable Inkwell reads.
const EnvPrefix = "INKWELL_"

// Config is the complete runtime configuration. The same struct describes
// the YAML file and generates its JSON Schema.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr        string   `koanf:"addr" json:"addr,omitempty" jsonschema:"description=API listen address (host:port)"`
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins,omitempty" jsonschema:"description=Origins allowed by CORS"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Metrics and health probe listen address; empty disables"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
}

// AuthConfig configures hashing, signing and the gate.
type AuthConfig struct {
	Secret          string   `koanf:"secret" json:"secret,omitempty" jsonschema:"description=HS256 token signing secret"`
	Hasher          string   `koanf:"hasher" json:"hasher,omitempty" jsonschema:"enum=bcrypt,enum=argon2id"`
	PublicPaths     []string `koanf:"public_paths" json:"public_paths,omitempty" jsonschema:"description=Glob patterns that bypass the required gate"`
	HashConcurrency int      `koanf:"hash_concurrency" json:"hash_concurrency,omitempty" jsonschema:"minimum=0"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Defaults returns the configuration used when nothing overrides it.
// HashConcurrency 0 means one slot per available CPU.
func Defaults() Config {
	return Config{
		HTTP:    HTTPConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Auth: AuthConfig{
			Hasher:      auth.HasherBcrypt,
			PublicPaths: []string{"/api/users", "/api/users/login"},
		},
		Log: LogConfig{Format: "json", Level: "info"},
	}
}

// flagKeys maps command-line flag names onto config keys. Flags not
// listed here are not configuration.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"metrics-addr": "metrics.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// Options controls Load.
type Options struct {
	// Path is an explicit config file. When empty the XDG default is used
	// if it exists.
	Path string
	// Flags contributes changed flags named in flagKeys.
	Flags *pflag.FlagSet
	// DotEnv is loaded into the process environment before env parsing.
	// Existing variables win. Empty means ".env"; "-" disables it.
	DotEnv string
}

// Load resolves the configuration. It does not call Validate.
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(opts.DotEnv); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := setDefaults(k); err != nil {
		return nil, err
	}

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").With("operation", "load env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps INKWELL_AUTH_HASH_CONCURRENCY to auth.hash_concurrency.
// Only the first underscore separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// listKeys are the keys whose env values are comma-separated lists.
var listKeys = map[string]bool{
	"http.cors_origins": true,
	"auth.public_paths": true,
}

// envValue maps an env var to its key and splits list values on commas,
// dropping blank items.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func setDefaults(k *koanf.Koanf) error {
	d := Defaults()
	values := map[string]any{
		"http.addr":             d.HTTP.Addr,
		"http.cors_origins":     d.HTTP.CORSOrigins,
		"metrics.addr":          d.Metrics.Addr,
		"database.url":          d.Database.URL,
		"auth.secret":           d.Auth.Secret,
		"auth.hasher":           d.Auth.Hasher,
		"auth.public_paths":     d.Auth.PublicPaths,
		"auth.hash_concurrency": d.Auth.HashConcurrency,
		"log.format":            d.Log.Format,
		"log.level":             d.Log.Level,
	}
	for key, v := range values {
		if err := k.Set(key, v); err != nil {
			return oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}
	return nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateFile(data); err != nil {
		return oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func loadDotEnv(path string) error {
	switch path {
	case "-":
		return nil
	case "":
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return oops.Code("CONFIG_DOTENV_FAILED").With("path", path).Wrap(err)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return oops.Code("CONFIG_SECRET_MISSING").
			Errorf("auth.secret is required (set %sAUTH_SECRET)", EnvPrefix)
	}
	if _, err := auth.NewHasher(c.Auth.Hasher); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.hasher").Wrap(err)
	}
	if c.Auth.HashConcurrency < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "auth.hash_concurrency").
			Errorf("auth.hash_concurrency must not be negative")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	return nil
}

// RequireDatabase checks that a database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return oops.Code("CONFIG_DATABASE_MISSING").
			Errorf("database.url is required (set %sDATABASE_URL)", EnvPrefix)
	}
	return nil
}
