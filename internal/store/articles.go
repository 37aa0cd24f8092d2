package store

import (
	"context"
	"database/sql"
	"fmt"
)

const articleColumns = `id, slug, title, summary, body, category, thumbnail_url, published, published_at, updated_by, created_at, updated_at`

func scanArticle(row scanner) (Article, error) {
	var item Article
	var publishedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Slug, &item.Title, &item.Summary, &item.Body, &item.Category, &item.ThumbnailURL, &item.Published, &publishedAt, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Article{}, err
	}
	item.PublishedAt = timePtr(publishedAt)
	return item, nil
}

func (s *PostgresStore) ListArticles(ctx context.Context, opts ListOptions) ([]Article, error) {
	clause, args := listClause(opts, "published", "category", "COALESCE(published_at, created_at) DESC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM health_info_articles`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0)
	for rows.Next() {
		item, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListArticleCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM health_info_articles
		WHERE published = TRUE AND category <> ''
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("list article categories: %w", err)
	}
	defer rows.Close()

	items := make([]string, 0)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan article category: %w", err)
		}
		items = append(items, category)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetArticle(ctx context.Context, id string) (Article, error) {
	item, err := scanArticle(s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM health_info_articles WHERE id=$1`, id))
	if err != nil {
		return Article{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) GetArticleBySlug(ctx context.Context, slug string) (Article, error) {
	item, err := scanArticle(s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM health_info_articles WHERE slug=$1`, slug))
	if err != nil {
		return Article{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertArticle(ctx context.Context, item Article) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_info_articles (id, slug, title, summary, body, category, thumbnail_url, published, published_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.Slug, item.Title, item.Summary, item.Body, item.Category, item.ThumbnailURL, item.Published, nullTime(item.PublishedAt), item.UpdatedBy)
	if err != nil {
		return writeErr("insert article", err)
	}
	return nil
}

func (s *PostgresStore) UpdateArticle(ctx context.Context, item Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE health_info_articles
		SET slug=$2, title=$3, summary=$4, body=$5, category=$6, thumbnail_url=$7, published=$8, published_at=$9, updated_by=$10, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Slug, item.Title, item.Summary, item.Body, item.Category, item.ThumbnailURL, item.Published, nullTime(item.PublishedAt), item.UpdatedBy)
	if err != nil {
		return writeErr("update article", err)
	}
	return expectAffected(res, "update article")
}

func (s *PostgresStore) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM health_info_articles WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	return expectAffected(res, "delete article")
}
