package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"studentpay-backend/internal/logging"
)

// Migrations are read from disk at startup so schema changes ship without a rebuild.
const DefaultMigrationsDir = "migrations"

// Migrator applies the numbered .sql files in a directory exactly once each
type Migrator struct {
	pool   *pgxpool.Pool
	dir    string
	logger *logging.Logger
}

func NewMigrator(pool *pgxpool.Pool, dir string, logger *logging.Logger) *Migrator {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	return &Migrator{pool: pool, dir: dir, logger: logger.Named("migrator")}
}

// RunMigrations executes every migration that is not yet recorded in schema_migrations.
// Each file runs in its own transaction together with its bookkeeping row.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	pending := PendingMigrations(files, applied)
	for _, filename := range pending {
		content, err := os.ReadFile(filepath.Join(m.dir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		m.logger.Info(ctx, "running migration", zap.String("file", filename))
		if err := m.apply(ctx, filename, string(content)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", filename, err)
		}
	}

	m.logger.Info(ctx, "migrations complete", zap.Int("applied", len(pending)))
	return nil
}

// PendingMigrations returns the .sql files not yet applied, sorted by name.
// Files containing "reset" are destructive scripts and are never run automatically.
func PendingMigrations(files []string, applied map[string]bool) []string {
	var pending []string
	for _, name := range files {
		if !strings.HasSuffix(name, ".sql") || strings.Contains(name, "reset") || applied[name] {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	return pending
}

func (m *Migrator) apply(ctx context.Context, filename, sql string) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO schema_migrations (filename)
			VALUES ($1)
			ON CONFLICT (filename) DO NOTHING
		`, filename)
		return err
	})
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := m.pool.Exec(ctx, query)
	return err
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := m.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}

	return applied, rows.Err()
}
