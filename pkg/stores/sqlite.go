package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteCache is a ScheduleCache backed by a local SQLite database, so the
// mapping survives process restarts. Still best-effort: the remote
// platform remains authoritative.
type SQLiteCache struct {
	db   *sql.DB
	path string
}

var _ ScheduleCache = (*SQLiteCache)(nil)

// SQLiteConfig holds SQLite cache configuration.
type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteCache opens (or creates) the database at cfg.Path and runs
// pending migrations.
func NewSQLiteCache(ctx context.Context, cfg SQLiteConfig) (*SQLiteCache, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 5
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &SQLiteCache{db: db, path: cfg.Path}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(c.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Get implements ScheduleCache.
func (c *SQLiteCache) Get(ctx context.Context, scheduleName string) (string, bool, error) {
	var taskDefinition string
	err := c.db.QueryRowContext(ctx,
		`SELECT task_definition FROM schedule_names WHERE schedule_name = ?`,
		scheduleName,
	).Scan(&taskDefinition)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read schedule %s: %w", scheduleName, err)
	}
	return taskDefinition, true, nil
}

// Put implements ScheduleCache.
func (c *SQLiteCache) Put(ctx context.Context, scheduleName, taskDefinition string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO schedule_names (schedule_name, task_definition, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(schedule_name) DO UPDATE SET
			task_definition = excluded.task_definition,
			updated_at = CURRENT_TIMESTAMP`,
		scheduleName, taskDefinition,
	)
	if err != nil {
		return fmt.Errorf("failed to store schedule %s: %w", scheduleName, err)
	}
	return nil
}

// Remove implements ScheduleCache.
func (c *SQLiteCache) Remove(ctx context.Context, scheduleName string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM schedule_names WHERE schedule_name = ?`, scheduleName)
	if err != nil {
		return fmt.Errorf("failed to remove schedule %s: %w", scheduleName, err)
	}
	return nil
}

// Entries implements ScheduleCache.
func (c *SQLiteCache) Entries(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT schedule_name, task_definition FROM schedule_names`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var name, taskDefinition string
		if err := rows.Scan(&name, &taskDefinition); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		entries[name] = taskDefinition
	}
	return entries, rows.Err()
}

// Close implements ScheduleCache.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
