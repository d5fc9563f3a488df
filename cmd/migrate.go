package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/autoreply/internal/config"
)

var migrationsDir string

// migrationsSource returns the file:// source for the schema migrations:
// --migrations-dir, then AUTOREPLY_MIGRATIONS_DIR, then ./migrations next to the binary.
func migrationsSource() string {
	dir := migrationsDir
	if dir == "" {
		dir = os.Getenv("AUTOREPLY_MIGRATIONS_DIR")
	}
	if dir == "" {
		dir = "migrations"
		if exe, err := os.Executable(); err == nil {
			dir = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return "file://" + dir
}

// withMigrator opens a migrator on the configured DSN, runs fn and logs the
// resulting version.
func withMigrator(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.PostgresDSN == "" {
		return errors.New("AUTOREPLY_POSTGRES_DSN environment variable is not set")
	}
	m, err := migrate.New(migrationsSource(), cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	v, dirty, _ := m.Version()
	slog.Info("migrate.done", "version", v, "dirty", dirty)
	return nil
}

// applyUp migrates to the latest schema. With repair, a dirty version left by a
// failed migration is rolled back to the previous version first.
func applyUp(m *migrate.Migrate, repair bool) error {
	if v, dirty, err := m.Version(); err == nil && dirty {
		if !repair {
			return fmt.Errorf("schema version %d is dirty, rerun with --repair", v)
		}
		slog.Warn("migrate.repair", "dirty_version", v, "reset_to", int(v)-1)
		if err := m.Force(int(v) - 1); err != nil {
			return fmt.Errorf("reset dirty version: %w", err)
		}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema used in managed mode",
	}
	cmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (default: ./migrations)")

	var repair bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error { return applyUp(m, repair) })
		},
	}
	up.Flags().BoolVar(&repair, "repair", false, "reset a dirty version left by a failed migration before applying")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: 1 step)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				return m.Steps(-max(steps, 1))
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of steps to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Show current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "version: none")
					return nil
				}
				if err != nil {
					return fmt.Errorf("get version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d, dirty: %v\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
