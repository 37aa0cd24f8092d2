package store

import (
	"context"
	"fmt"
)

const marqueeColumns = `id, text, link_url, sort_order, active, created_at, updated_at`

func scanMarquee(row scanner) (MarqueeItem, error) {
	var item MarqueeItem
	err := row.Scan(&item.ID, &item.Text, &item.LinkURL, &item.SortOrder, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) ListMarqueeItems(ctx context.Context, opts ListOptions) ([]MarqueeItem, error) {
	clause, args := listClause(opts, "active", "", "sort_order ASC, created_at ASC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+marqueeColumns+` FROM marquee_items`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list marquee items: %w", err)
	}
	defer rows.Close()

	items := make([]MarqueeItem, 0)
	for rows.Next() {
		item, err := scanMarquee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marquee item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marquee items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMarqueeItem(ctx context.Context, id string) (MarqueeItem, error) {
	item, err := scanMarquee(s.db.QueryRowContext(ctx, `SELECT `+marqueeColumns+` FROM marquee_items WHERE id=$1`, id))
	if err != nil {
		return MarqueeItem{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertMarqueeItem(ctx context.Context, item MarqueeItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO marquee_items (id, text, link_url, sort_order, active)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Text, item.LinkURL, item.SortOrder, item.Active)
	if err != nil {
		return writeErr("insert marquee item", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMarqueeItem(ctx context.Context, item MarqueeItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE marquee_items SET text=$2, link_url=$3, sort_order=$4, active=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Text, item.LinkURL, item.SortOrder, item.Active)
	if err != nil {
		return writeErr("update marquee item", err)
	}
	return expectAffected(res, "update marquee item")
}

func (s *PostgresStore) DeleteMarqueeItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM marquee_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete marquee item: %w", err)
	}
	return expectAffected(res, "delete marquee item")
}

func (s *PostgresStore) ReorderMarqueeItems(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "marquee_items", ids)
}

const heroImageColumns = `id, image_url, alt_text, link_url, sort_order, active, created_at, updated_at`

func scanHeroImage(row scanner) (HeroImage, error) {
	var item HeroImage
	err := row.Scan(&item.ID, &item.ImageURL, &item.AltText, &item.LinkURL, &item.SortOrder, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) ListHeroImages(ctx context.Context, opts ListOptions) ([]HeroImage, error) {
	clause, args := listClause(opts, "active", "", "sort_order ASC, created_at ASC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+heroImageColumns+` FROM hero_images`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list hero images: %w", err)
	}
	defer rows.Close()

	items := make([]HeroImage, 0)
	for rows.Next() {
		item, err := scanHeroImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hero image: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hero images: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetHeroImage(ctx context.Context, id string) (HeroImage, error) {
	item, err := scanHeroImage(s.db.QueryRowContext(ctx, `SELECT `+heroImageColumns+` FROM hero_images WHERE id=$1`, id))
	if err != nil {
		return HeroImage{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertHeroImage(ctx context.Context, item HeroImage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hero_images (id, image_url, alt_text, link_url, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.ImageURL, item.AltText, item.LinkURL, item.SortOrder, item.Active)
	if err != nil {
		return writeErr("insert hero image", err)
	}
	return nil
}

func (s *PostgresStore) UpdateHeroImage(ctx context.Context, item HeroImage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hero_images SET image_url=$2, alt_text=$3, link_url=$4, sort_order=$5, active=$6, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.ImageURL, item.AltText, item.LinkURL, item.SortOrder, item.Active)
	if err != nil {
		return writeErr("update hero image", err)
	}
	return expectAffected(res, "update hero image")
}

func (s *PostgresStore) DeleteHeroImage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hero_images WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete hero image: %w", err)
	}
	return expectAffected(res, "delete hero image")
}

func (s *PostgresStore) ReorderHeroImages(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "hero_images", ids)
}

func (s *PostgresStore) GetPageHeading(ctx context.Context, pageKey string) (PageHeading, error) {
	var item PageHeading
	err := s.db.QueryRowContext(ctx, `
		SELECT page_key, title, subtitle, updated_by, updated_at FROM page_headings WHERE page_key=$1
	`, pageKey).Scan(&item.PageKey, &item.Title, &item.Subtitle, &item.UpdatedBy, &item.UpdatedAt)
	if err != nil {
		return PageHeading{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) ListPageHeadings(ctx context.Context) ([]PageHeading, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT page_key, title, subtitle, updated_by, updated_at FROM page_headings ORDER BY page_key`)
	if err != nil {
		return nil, fmt.Errorf("list page headings: %w", err)
	}
	defer rows.Close()

	items := make([]PageHeading, 0)
	for rows.Next() {
		var item PageHeading
		if err := rows.Scan(&item.PageKey, &item.Title, &item.Subtitle, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page heading: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page headings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertPageHeading(ctx context.Context, item PageHeading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_headings (page_key, title, subtitle, updated_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (page_key) DO UPDATE
		SET title=EXCLUDED.title, subtitle=EXCLUDED.subtitle, updated_by=EXCLUDED.updated_by, updated_at=NOW()
	`, item.PageKey, item.Title, item.Subtitle, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("upsert page heading: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPageHero(ctx context.Context, pageKey string) (PageHero, error) {
	var item PageHero
	err := s.db.QueryRowContext(ctx, `
		SELECT page_key, image_url, title, subtitle, overlay_opacity, updated_by, updated_at FROM page_heroes WHERE page_key=$1
	`, pageKey).Scan(&item.PageKey, &item.ImageURL, &item.Title, &item.Subtitle, &item.OverlayOpacity, &item.UpdatedBy, &item.UpdatedAt)
	if err != nil {
		return PageHero{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) ListPageHeroes(ctx context.Context) ([]PageHero, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_key, image_url, title, subtitle, overlay_opacity, updated_by, updated_at FROM page_heroes ORDER BY page_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list page heroes: %w", err)
	}
	defer rows.Close()

	items := make([]PageHero, 0)
	for rows.Next() {
		var item PageHero
		if err := rows.Scan(&item.PageKey, &item.ImageURL, &item.Title, &item.Subtitle, &item.OverlayOpacity, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page hero: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page heroes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertPageHero(ctx context.Context, item PageHero) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_heroes (page_key, image_url, title, subtitle, overlay_opacity, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (page_key) DO UPDATE
		SET image_url=EXCLUDED.image_url, title=EXCLUDED.title, subtitle=EXCLUDED.subtitle,
			overlay_opacity=EXCLUDED.overlay_opacity, updated_by=EXCLUDED.updated_by, updated_at=NOW()
	`, item.PageKey, item.ImageURL, item.Title, item.Subtitle, item.OverlayOpacity, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("upsert page hero: %w", err)
	}
	return nil
}

const equipmentColumns = `id, name, description, manufacturer, image_url, sort_order, published, created_at, updated_at`

func scanEquipment(row scanner) (Equipment, error) {
	var item Equipment
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Manufacturer, &item.ImageURL, &item.SortOrder, &item.Published, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) ListEquipment(ctx context.Context, opts ListOptions) ([]Equipment, error) {
	clause, args := listClause(opts, "published", "", "sort_order ASC, created_at ASC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+equipmentColumns+` FROM equipment`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	items := make([]Equipment, 0)
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetEquipment(ctx context.Context, id string) (Equipment, error) {
	item, err := scanEquipment(s.db.QueryRowContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id=$1`, id))
	if err != nil {
		return Equipment{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertEquipment(ctx context.Context, item Equipment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO equipment (id, name, description, manufacturer, image_url, sort_order, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Name, item.Description, item.Manufacturer, item.ImageURL, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("insert equipment", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEquipment(ctx context.Context, item Equipment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE equipment SET name=$2, description=$3, manufacturer=$4, image_url=$5, sort_order=$6, published=$7, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Name, item.Description, item.Manufacturer, item.ImageURL, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("update equipment", err)
	}
	return expectAffected(res, "update equipment")
}

func (s *PostgresStore) DeleteEquipment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM equipment WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	return expectAffected(res, "delete equipment")
}

func (s *PostgresStore) ReorderEquipment(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "equipment", ids)
}
