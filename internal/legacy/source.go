package legacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	_ "modernc.org/sqlite"
)

// Source yields the legacy settings blobs.
type Source interface {
	Settings(ctx context.Context) ([]store.LegacySetting, error)
}

// PostgresSource reads site_settings from the live database.
type PostgresSource struct {
	Store *store.PostgresStore
}

func (s PostgresSource) Settings(ctx context.Context) ([]store.LegacySetting, error) {
	return s.Store.ListLegacySettings(ctx)
}

// SQLiteSource reads site_settings from an exported SQLite file. Rows read
// this way never carry a migrated marker.
type SQLiteSource struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Settings(ctx context.Context) ([]store.LegacySetting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query site_settings: %w", err)
	}
	defer rows.Close()

	var out []store.LegacySetting
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		setting := store.LegacySetting{Key: key, Value: json.RawMessage("null")}
		if value.Valid {
			setting.Value = json.RawMessage(value.String)
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
