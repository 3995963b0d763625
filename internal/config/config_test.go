// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/pkg/errutil"
)

// isolate points the XDG config dir at an empty temp dir so a developer's
// real config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(Options{DotEnv: "-"})
	require.NoError(t, err)

	if diff := cmp.Diff(Defaults(), *cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultFileFromXDG(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "inkwell", "config.yaml"), `
http:
  addr: ":9000"
auth:
  secret: from-file
  hasher: argon2id
`)

	cfg, err := Load(Options{DotEnv: "-"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.Equal(t, "argon2id", cfg.Auth.Hasher)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep defaults")
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	isolate(t)

	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "nope.yaml"), DotEnv: "-"})
	errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
}

func TestLoad_SchemaRejectsFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "http:\n  port: 80\n"},
		{"bad enum", "auth:\n  hasher: md5\n"},
		{"wrong type", "auth:\n  public_paths: /api\n"},
		{"negative concurrency", "auth:\n  hash_concurrency: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeFile(t, filepath.Join(t.TempDir(), "config.yaml"), tt.content)

			_, err := Load(Options{Path: path, DotEnv: "-"})
			errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_INVALID")
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "config.yaml"), "auth:\n  secret: from-file\n")
	t.Setenv("INKWELL_AUTH_SECRET", "from-env")
	t.Setenv("INKWELL_AUTH_HASH_CONCURRENCY", "3")
	t.Setenv("INKWELL_AUTH_PUBLIC_PATHS", "/api/users,/api/tags*")
	t.Setenv("INKWELL_DATABASE_URL", "postgres://localhost/inkwell")

	cfg, err := Load(Options{Path: path, DotEnv: "-"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 3, cfg.Auth.HashConcurrency)
	assert.Equal(t, []string{"/api/users", "/api/tags*"}, cfg.Auth.PublicPaths)
	assert.Equal(t, "postgres://localhost/inkwell", cfg.Database.URL)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("INKWELL_HTTP_ADDR", ":7000")
	t.Setenv("INKWELL_LOG_LEVEL", "warn")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("addr", "", "")
	fs.String("log-level", "", "")
	fs.Bool("verbose", false, "")
	require.NoError(t, fs.Parse([]string{"--addr", ":7100", "--verbose"}))

	cfg, err := Load(Options{Flags: fs, DotEnv: "-"})
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.HTTP.Addr, "changed flag wins")
	assert.Equal(t, "warn", cfg.Log.Level, "unchanged flag does not clobber env")
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), ".env"), "INKWELL_AUTH_SECRET=dotenv-secret\n")
	t.Cleanup(func() { _ = os.Unsetenv("INKWELL_AUTH_SECRET") })

	cfg, err := Load(Options{DotEnv: path})
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.Auth.Secret)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), ".env"), "INKWELL_AUTH_SECRET=dotenv-secret\n")
	t.Setenv("INKWELL_AUTH_SECRET", "real-secret")

	cfg, err := Load(Options{DotEnv: path})
	require.NoError(t, err)
	assert.Equal(t, "real-secret", cfg.Auth.Secret)
}

func TestLoad_MissingDefaultDotEnvIgnored(t *testing.T) {
	isolate(t)
	t.Chdir(t.TempDir())

	_, err := Load(Options{})
	require.NoError(t, err)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"INKWELL_AUTH_SECRET":           "auth.secret",
		"INKWELL_AUTH_HASH_CONCURRENCY": "auth.hash_concurrency",
		"INKWELL_HTTP_CORS_ORIGINS":     "http.cors_origins",
		"INKWELL_LOG_LEVEL":             "log.level",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnvValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		key   string
		want  any
	}{
		{"INKWELL_AUTH_SECRET", "a,b", "auth.secret", "a,b"},
		{"INKWELL_AUTH_PUBLIC_PATHS", "/api/users, /api/users/login", "auth.public_paths", []string{"/api/users", "/api/users/login"}},
		{"INKWELL_HTTP_CORS_ORIGINS", "http://a.test,,http://b.test ", "http.cors_origins", []string{"http://a.test", "http://b.test"}},
		{"INKWELL_HTTP_CORS_ORIGINS", "", "http.cors_origins", []string{}},
	}
	for _, tt := range tests {
		key, got := envValue(tt.name, tt.value)
		assert.Equal(t, tt.key, key, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestLoad_EnvListValues(t *testing.T) {
	isolate(t)
	t.Setenv("INKWELL_AUTH_PUBLIC_PATHS", "/api/users,/api/users/login")
	t.Setenv("INKWELL_HTTP_CORS_ORIGINS", "http://localhost:5173, https://app.example.com")

	cfg, err := Load(Options{DotEnv: "-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/users", "/api/users/login"}, cfg.Auth.PublicPaths)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.HTTP.CORSOrigins)
}

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.Secret = "s3cret"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.Secret = "  " }, "CONFIG_SECRET_MISSING"},
		{"unknown hasher", func(c *Config) { c.Auth.Hasher = "md5" }, "AUTH_UNKNOWN_HASHER"},
		{"negative concurrency", func(c *Config) { c.Auth.HashConcurrency = -2 }, "CONFIG_INVALID"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "CONFIG_INVALID"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "LOG_INVALID_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	cfg := validConfig()
	errutil.AssertErrorCode(t, cfg.RequireDatabase(), "CONFIG_DATABASE_MISSING")

	cfg.Database.URL = "postgres://localhost/inkwell"
	assert.NoError(t, cfg.RequireDatabase())
}
