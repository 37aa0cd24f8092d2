package main

import (
	"fmt"
	"os"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply every *.up.sql file in the migrations directory that has not been
applied yet. Already applied versions are skipped.

Examples:
  clinicctl migrate
  clinicctl migrate --dir ./db/migrations`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		dir := cfg.MigrationsDir
		if migrationsDir != "" {
			dir = migrationsDir
		}
		applied, err := store.ApplyMigrationsFS(ctx, db, os.DirFS(dir))
		if err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		logger.Info("migrations applied", zap.String("dir", dir), zap.Strings("versions", applied))
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, version := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "Migrations directory (default: CLINIC_MIGRATIONS_DIR)")
	rootCmd.AddCommand(migrateCmd)
}
