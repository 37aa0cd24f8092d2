package main

import (
	"fmt"
	"strings"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the Meilisearch indexes from Postgres",
	Long: `Drop and rebuild every Meilisearch index from the published rows in Postgres.
Requires MEILI_URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if strings.TrimSpace(cfg.MeiliURL) == "" {
			return fmt.Errorf("MEILI_URL is not set")
		}
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meili.Close()

		count, err := search.NewService(meili, search.NewPgFTS(db), logger).Reindex(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
