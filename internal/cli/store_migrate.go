package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/wbmerge/internal/cli/appctx"
	"github.com/lherron/wbmerge/internal/db"
)

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run any pending database migrations",
	Long: `Migrate applies any pending SQL migrations to the store database.

Migrations are embedded in the wbmerge binary and tracked via the
schema_migrations table. Each migration file (e.g., 000001_baseline.sql) is
applied exactly once, so this command is safe to run multiple times.

Use --dry-run to see which migrations would be applied without running them.
Use --status to show the current migration status.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runStoreMigrate),
}

var (
	migrateDryRun bool
	migrateStatus bool
)

func init() {
	storeCmd.AddCommand(storeMigrateCmd)

	storeMigrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Show which migrations would be applied without running them")
	storeMigrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show current migration status")
}

func runStoreMigrate(app *appctx.App, cmd *cobra.Command, args []string) error {
	if app.Config.DBPath == "" {
		return exitError(2, fmt.Errorf("database path not specified (use --db flag or set WBMERGE_DB_PATH)"))
	}

	database, err := db.Open(app.Config.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	if migrateStatus {
		return showMigrationStatus(cmd, database)
	}
	if migrateDryRun {
		return showPendingMigrations(cmd, database)
	}

	applied, err := database.Apply()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
		return nil
	}
	for _, m := range applied {
		app.Logger.WithField("migration", m.File).Debug("applied migration")
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m.File)
	}
	fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	return nil
}

func showMigrationStatus(cmd *cobra.Command, database *db.DB) error {
	status, err := database.Status()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}
	applied, pending := status.Applied, status.Pending

	out := cmd.OutOrStdout()
	if len(applied) == 0 && len(pending) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	if len(applied) > 0 {
		fmt.Fprintln(out, "Applied migrations:")
		for _, m := range applied {
			fmt.Fprintf(out, "  ✓ %s (%s)\n", m.File, m.AppliedAt)
		}
	}
	if len(pending) > 0 {
		if len(applied) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, "Pending migrations:")
		for _, m := range pending {
			fmt.Fprintf(out, "  ○ %s\n", m.File)
		}
	}
	return nil
}

func showPendingMigrations(cmd *cobra.Command, database *db.DB) error {
	status, err := database.Status()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}
	pending := status.Pending

	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations. Database is up to date.")
		return nil
	}

	fmt.Fprintln(out, "Pending migrations (would be applied):")
	for _, m := range pending {
		fmt.Fprintf(out, "  ○ %s\n", m.File)
	}
	fmt.Fprintf(out, "\nTotal: %d migration(s) would be applied.\n", len(pending))
	return nil
}
