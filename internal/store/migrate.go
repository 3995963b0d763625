// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package store

import (
	"cmp"
	"embed"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one embedded up file, e.g. 000001_create_users.up.sql.
type migration struct {
	version uint
	name    string // without the .up.sql suffix
}

// catalog is parsed from migrationsFS on first use.
var catalog = sync.OnceValues(func() ([]migration, error) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").With("operation", "read migrations dir").Wrap(err)
	}

	var out []migration
	for _, entry := range entries {
		mig, ok := parseMigrationFile(entry.Name())
		if !ok {
			continue
		}
		if slices.ContainsFunc(out, func(m migration) bool { return m.version == mig.version }) {
			slog.Warn("skipping duplicate migration version", "filename", entry.Name(), "version", mig.version)
			continue
		}
		out = append(out, mig)
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out, nil
})

// parseMigrationFile reports whether file is an up migration and, if so,
// its version and name. Down files are ignored silently; anything else
// ending in .up.sql without a numeric prefix is logged and skipped.
func parseMigrationFile(file string) (migration, bool) {
	name, ok := strings.CutSuffix(file, ".up.sql")
	if !ok {
		return migration{}, false
	}
	prefix, _, _ := strings.Cut(name, "_")
	version, err := strconv.ParseUint(prefix, 10, 0)
	if err != nil || len(prefix) != 6 {
		slog.Warn("skipping migration with unexpected file name",
			"filename", file,
			"expected_format", "NNNNNN_name.up.sql")
		return migration{}, false
	}
	return migration{version: uint(version), name: name}, true
}

// schemaDriver is the part of *migrate.Migrate the Migrator uses.
type schemaDriver interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m schemaDriver
}

// NewMigrator opens a Migrator against databaseURL. postgres:// and
// postgresql:// URLs are accepted and handed to golang-migrate as pgx5://.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "create migration source").Wrap(err)
	}

	driver, err := migrate.NewWithSourceInstance("iofs", source, pgx5URL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}
	return &Migrator{m: driver}, nil
}

func pgx5URL(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if ok && (scheme == "postgres" || scheme == "postgresql") {
		return "pgx5://" + rest
	}
	return databaseURL
}

// run invokes op and treats "nothing to do" as success.
func run(code string, op func() error) error {
	err := op()
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return oops.Code(code).Wrap(err)
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	return run("MIGRATION_UP_FAILED", m.m.Up)
}

// Down rolls back every migration. All user data is dropped.
func (m *Migrator) Down() error {
	return run("MIGRATION_DOWN_FAILED", m.m.Down)
}

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	err := run("MIGRATION_STEPS_FAILED", func() error { return m.m.Steps(n) })
	if err != nil {
		return oops.With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied version and whether the last migration
// failed partway. A fresh database reports 0, false.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force marks version as applied and clears the dirty flag without running
// any SQL. Use it after repairing a half-applied migration by hand.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and the database connection. When both fail
// the returned error wraps both causes.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	var component string
	switch {
	case srcErr != nil && dbErr != nil:
		component = "both"
	case srcErr != nil:
		component = "source"
	case dbErr != nil:
		component = "database"
	default:
		return nil
	}
	return oops.Code("MIGRATION_CLOSE_FAILED").With("component", component).Wrap(errors.Join(srcErr, dbErr))
}

// PendingMigrations lists the versions Up would apply, ascending.
func (m *Migrator) PendingMigrations() ([]uint, error) {
	_, pending, err := m.split()
	if err != nil {
		return nil, oops.With("operation", "get pending migrations").Wrap(err)
	}
	return pending, nil
}

// AppliedMigrations lists the applied versions, ascending.
func (m *Migrator) AppliedMigrations() ([]uint, error) {
	applied, _, err := m.split()
	if err != nil {
		return nil, oops.With("operation", "get applied migrations").Wrap(err)
	}
	return applied, nil
}

// split partitions the embedded versions around the applied version.
func (m *Migrator) split() (applied, pending []uint, err error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, nil, err
	}
	all, err := allMigrationVersions()
	if err != nil {
		return nil, nil, err
	}
	cut, _ := slices.BinarySearch(all, current+1)
	if cut > 0 {
		applied = all[:cut]
	}
	if cut < len(all) {
		pending = all[cut:]
	}
	return applied, pending, nil
}

// MigrationName returns "NNNNNN_name" for version, or "" if no embedded
// migration has that version.
func MigrationName(version uint) (string, error) {
	migrations, err := catalog()
	if err != nil {
		return "", err
	}
	i, found := slices.BinarySearchFunc(migrations, version, func(m migration, v uint) int {
		return cmp.Compare(m.version, v)
	})
	if !found {
		return "", nil
	}
	return migrations[i].name, nil
}

// allMigrationVersions returns the embedded versions in ascending order.
// The slice is freshly allocated on every call.
func allMigrationVersions() ([]uint, error) {
	migrations, err := catalog()
	if err != nil {
		return nil, err
	}
	out := make([]uint, len(migrations))
	for i, mig := range migrations {
		out[i] = mig.version
	}
	return out, nil
}
