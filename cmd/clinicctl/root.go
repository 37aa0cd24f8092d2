package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/config"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/logging"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel  string
	logFormat string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clinicctl",
	Short: "Operate the clinic CMS database",
	Long: `clinicctl applies schema migrations, creates admin accounts, rebuilds the
search index and imports content from the legacy settings blobs.

Connection settings come from the same environment as the API server
(DATABASE_URL, MEILI_URL, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
}

// openDatabase loads config and connects to Postgres. The caller closes db.
func openDatabase(ctx context.Context) (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("database connection failed: %w", err)
	}
	return cfg, db, nil
}
