package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Pool is the subset of *pgxpool.Pool the migrator drives.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

var migrationName = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migrations returns the embedded schema, oldest first.
func Migrations() ([]Migration, error) {
	return LoadMigrations(migrationsFS)
}

// LoadMigrations reads NNNN_name.(up|down).sql pairs from fsys.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	index := make(map[int64]*Migration)
	for _, p := range paths {
		m := migrationName.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		mig, ok := index[version]
		if !ok {
			mig = &Migration{Version: version, Name: m[2]}
			index[version] = mig
		} else if mig.Name != m[2] {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, mig.Name, m[2])
		}

		if m[3] == "up" {
			if mig.UpSQL != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			mig.UpSQL = body
		} else {
			if mig.DownSQL != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			mig.DownSQL = body
		}
	}

	out := make([]Migration, 0, len(index))
	for _, m := range index {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type Migrator struct {
	pool       Pool
	migrations []Migration
}

func NewMigrator(pool Pool, migrations []Migration) *Migrator {
	return &Migrator{pool: pool, migrations: migrations}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = struct{}{}
	}
	return out, rows.Err()
}

// Up applies every pending migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		err := m.inTx(ctx, mig.UpSQL, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
		if err != nil {
			return count, fmt.Errorf("version %d up: %w", mig.Version, err)
		}
		log.Info().Int64("version", mig.Version).Str("name", mig.Name).Msg("migration applied")
		count++
	}
	return count, nil
}

// Down rolls back the newest steps migrations.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be > 0")
	}
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	byVersion := make(map[int64]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		byVersion[mig.Version] = mig
	}

	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, err
		}
		versions = append(versions, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, v := range versions {
		mig, ok := byVersion[v]
		if !ok {
			return count, fmt.Errorf("cannot find migration source for applied version %d", v)
		}
		if err := m.inTx(ctx, mig.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version); err != nil {
			return count, fmt.Errorf("version %d down: %w", mig.Version, err)
		}
		log.Info().Int64("version", mig.Version).Str("name", mig.Name).Msg("migration rolled back")
		count++
	}
	return count, nil
}

// Version reports the newest applied migration, or 0 when none is.
func (m *Migrator) Version(ctx context.Context) (int64, string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, "", err
	}
	var version int64
	var name string
	err := m.pool.QueryRow(ctx, `SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	return version, name, err
}

func (m *Migrator) inTx(ctx context.Context, body, record string, args ...any) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, body); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx, record, args...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
