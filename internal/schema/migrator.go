package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// Migrator applies the portal schema to a PostgreSQL database
type Migrator struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *sql.DB, logger *slog.Logger) *Migrator {
	return &Migrator{DB: db, logger: logger}
}

// InitializeSchema creates the version bookkeeping table
func (m *Migrator) InitializeSchema(ctx context.Context) error {
	_, err := m.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_versions (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`)
	return err
}

// CurrentVersion returns the highest applied migration, 0 for a fresh database.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.DB.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM schema_versions
	`).Scan(&version)
	return version, err
}

// Migrate applies every pending migration, each in its own transaction, and
// returns the versions it applied.
func (m *Migrator) Migrate(ctx context.Context) ([]int, error) {
	if err := m.InitializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	var applied []int
	for _, mig := range Pending(Migrations(), current) {
		if err := m.apply(ctx, mig); err != nil {
			return applied, err
		}
		m.logger.Info("migration applied", "version", mig.Version, "description", mig.Description)
		applied = append(applied, mig.Version)
	}

	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO schema_versions (version, description) VALUES ($1, $2)
	`, mig.Version, mig.Description); err != nil {
		return fmt.Errorf("failed to record version %d: %w", mig.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", mig.Version, err)
	}

	return nil
}

// Pending returns the migrations newer than current.
func Pending(all []Migration, current int) []Migration {
	var out []Migration
	for _, mig := range all {
		if mig.Version > current {
			out = append(out, mig)
		}
	}
	return out
}
