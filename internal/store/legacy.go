package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) ListLegacySettings(ctx context.Context) ([]LegacySetting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, migrated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list legacy settings: %w", err)
	}
	defer rows.Close()

	items := make([]LegacySetting, 0)
	for rows.Next() {
		var item LegacySetting
		var value []byte
		var migratedAt sql.NullTime
		if err := rows.Scan(&item.Key, &value, &migratedAt); err != nil {
			return nil, fmt.Errorf("scan legacy setting: %w", err)
		}
		item.Value = value
		item.MigratedAt = timePtr(migratedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy settings: %w", err)
	}
	return items, nil
}

// MarkLegacySettingMigrated stamps a settings row. Keys read from an external
// SQLite export have no row here, so a miss is not an error.
func (s *PostgresStore) MarkLegacySettingMigrated(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE site_settings SET migrated_at=NOW() WHERE key=$1`, key); err != nil {
		return fmt.Errorf("mark legacy setting migrated: %w", err)
	}
	return nil
}
