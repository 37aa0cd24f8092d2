package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/legacy"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/spf13/cobra"
)

var (
	legacySQLite string
	legacyDryRun bool
	legacyForce  bool
	legacyKeys   []string
	legacyJSON   bool
)

var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy",
	Short: "Import content from the legacy site_settings blobs",
	Long: `Reshape each legacy site_settings JSON blob into rows of its table.

A key is imported only while its target table is empty, unless --force is
given. Each key runs in its own transaction and is marked migrated afterwards.
By default the blobs are read from the site_settings table of DATABASE_URL;
--sqlite reads them from an exported SQLite file instead.

Examples:
  clinicctl migrate-legacy --dry-run
  clinicctl migrate-legacy --keys treatments,faqs
  clinicctl migrate-legacy --sqlite ./legacy.db --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}

		pg := store.NewPostgresStore(db)
		var source legacy.Source = legacy.PostgresSource{Store: pg}
		if legacySQLite != "" {
			sqlite, err := legacy.OpenSQLite(ctx, legacySQLite)
			if err != nil {
				return err
			}
			defer sqlite.Close()
			source = sqlite
		}

		reports, err := legacy.NewMigrator(source, pg, logger).Run(ctx, legacy.Options{
			DryRun: legacyDryRun,
			Force:  legacyForce,
			Keys:   legacyKeys,
		})
		if err != nil {
			return err
		}
		if legacyJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}
		} else {
			printReports(cmd.OutOrStdout(), reports)
		}

		failed := 0
		for _, r := range reports {
			if r.Status == legacy.StatusFailed {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d legacy keys failed", failed)
		}
		return nil
	},
}

func printReports(w io.Writer, reports []legacy.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTABLE\tINSERTED\tSKIPPED\tSTATUS")
	for _, r := range reports {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Key, r.Table, r.Inserted, r.Skipped, status)
	}
	_ = tw.Flush()
}

func init() {
	migrateLegacyCmd.Flags().StringVar(&legacySQLite, "sqlite", "", "Read blobs from this SQLite file instead of Postgres")
	migrateLegacyCmd.Flags().BoolVar(&legacyDryRun, "dry-run", false, "Reshape and report without writing")
	migrateLegacyCmd.Flags().BoolVar(&legacyForce, "force", false, "Import even when the target table has rows")
	migrateLegacyCmd.Flags().StringSliceVar(&legacyKeys, "keys", nil, "Only migrate these keys (comma separated)")
	migrateLegacyCmd.Flags().BoolVar(&legacyJSON, "json", false, "Print reports as JSON")
	rootCmd.AddCommand(migrateLegacyCmd)
}
