package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type PostgresStore struct {
	sqlDB *sql.DB
	db    dbtx
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlDB: db, db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.sqlDB
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// WithTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(*PostgresStore) error) error {
	if _, nested := s.db.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&PostgresStore{sqlDB: s.sqlDB, db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func writeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

// orderedTables lists the tables whose rows carry a sort_order column.
var orderedTables = map[string]struct{}{
	"treatments":    {},
	"faqs":          {},
	"marquee_items": {},
	"hero_images":   {},
	"equipment":     {},
}

// reorder assigns each id its index as sort_order in a single transaction.
// Rows missing from ids keep their relative order and follow the listed ones.
func (s *PostgresStore) reorder(ctx context.Context, table string, ids []string) error {
	if _, ok := orderedTables[table]; !ok {
		return fmt.Errorf("reorder: table %s is not ordered", table)
	}
	return s.WithTx(ctx, func(tx *PostgresStore) error {
		for index, id := range ids {
			res, err := tx.db.ExecContext(ctx,
				fmt.Sprintf(`UPDATE %s SET sort_order=$1, updated_at=NOW() WHERE id=$2`, table),
				index, id)
			if err != nil {
				return fmt.Errorf("reorder %s: %w", table, err)
			}
			if err := expectAffected(res, "reorder "+table); err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("reorder %s: id %s: %w", table, id, ErrNotFound)
				}
				return err
			}
		}
		_, err := tx.db.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %[1]s SET sort_order=r.position, updated_at=NOW()
			FROM (
				SELECT id, $1 + ROW_NUMBER() OVER (ORDER BY sort_order, created_at, id) - 1 AS position
				FROM %[1]s WHERE NOT (id = ANY($2))
			) r
			WHERE %[1]s.id = r.id AND %[1]s.sort_order <> r.position
		`, table), len(ids), ids)
		if err != nil {
			return fmt.Errorf("reorder %s remainder: %w", table, err)
		}
		return nil
	})
}

// TableRowCount reports how many rows a content table holds.
func (s *PostgresStore) TableRowCount(ctx context.Context, table string) (int, error) {
	if _, ok := countableTables[table]; !ok {
		return 0, fmt.Errorf("count rows: unknown table %s", table)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}

// ExistingSlugs lists the slugs already stored in a slugged table.
func (s *PostgresStore) ExistingSlugs(ctx context.Context, table string) ([]string, error) {
	if _, ok := sluggedTables[table]; !ok {
		return nil, fmt.Errorf("list slugs: unknown table %s", table)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT slug FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("list slugs in %s: %w", table, err)
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

var sluggedTables = map[string]struct{}{
	"treatments":           {},
	"health_info_articles": {},
}

var countableTables = map[string]struct{}{
	"treatments":           {},
	"faqs":                 {},
	"notices":              {},
	"marquee_items":        {},
	"hero_images":          {},
	"page_headings":        {},
	"page_heroes":          {},
	"equipment":            {},
	"health_info_articles": {},
	"admin_users":          {},
}
