package store

import (
	"context"
	"fmt"
)

const imageColumns = `id, object_key, url, content_type, size_bytes, original_name, alt_text, uploaded_by, created_at`

func scanImage(row scanner) (Image, error) {
	var item Image
	err := row.Scan(&item.ID, &item.ObjectKey, &item.URL, &item.ContentType, &item.SizeBytes, &item.OriginalName, &item.AltText, &item.UploadedBy, &item.CreatedAt)
	return item, err
}

func (s *PostgresStore) InsertImage(ctx context.Context, item Image) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, object_key, url, content_type, size_bytes, original_name, alt_text, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.ObjectKey, item.URL, item.ContentType, item.SizeBytes, item.OriginalName, item.AltText, item.UploadedBy)
	if err != nil {
		return writeErr("insert image", err)
	}
	return nil
}

func (s *PostgresStore) GetImage(ctx context.Context, id string) (Image, error) {
	item, err := scanImage(s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id=$1`, id))
	if err != nil {
		return Image{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) ListImages(ctx context.Context, opts ListOptions) ([]Image, error) {
	clause, args := listClause(opts, "", "", "created_at DESC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	items := make([]Image, 0)
	for rows.Next() {
		item, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteImage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return expectAffected(res, "delete image")
}
