package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// listClause builds the WHERE/LIMIT tail shared by the content list queries.
// visibleColumn is "published" or "active"; an empty categoryColumn disables
// the category filter.
func listClause(opts ListOptions, visibleColumn, categoryColumn, orderBy string) (string, []any) {
	opts = opts.Normalize()
	var where []string
	var args []any
	if opts.PublishedOnly && visibleColumn != "" {
		where = append(where, visibleColumn+" = TRUE")
	}
	if categoryColumn != "" && strings.TrimSpace(opts.Category) != "" {
		args = append(args, strings.TrimSpace(opts.Category))
		where = append(where, fmt.Sprintf("%s = $%d", categoryColumn, len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	clause += fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", orderBy, len(args)-1, len(args))
	return clause, args
}

const treatmentColumns = `id, slug, title, summary, description, category, image_url, sort_order, published, created_at, updated_at`

func scanTreatment(row scanner) (Treatment, error) {
	var item Treatment
	err := row.Scan(&item.ID, &item.Slug, &item.Title, &item.Summary, &item.Description, &item.Category, &item.ImageURL, &item.SortOrder, &item.Published, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) ListTreatments(ctx context.Context, opts ListOptions) ([]Treatment, error) {
	clause, args := listClause(opts, "published", "category", "sort_order ASC, created_at ASC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+treatmentColumns+` FROM treatments`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer rows.Close()

	items := make([]Treatment, 0)
	for rows.Next() {
		item, err := scanTreatment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate treatments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTreatment(ctx context.Context, id string) (Treatment, error) {
	item, err := scanTreatment(s.db.QueryRowContext(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE id=$1`, id))
	if err != nil {
		return Treatment{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) GetTreatmentBySlug(ctx context.Context, slug string) (Treatment, error) {
	item, err := scanTreatment(s.db.QueryRowContext(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE slug=$1`, slug))
	if err != nil {
		return Treatment{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertTreatment(ctx context.Context, item Treatment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treatments (id, slug, title, summary, description, category, image_url, sort_order, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.Slug, item.Title, item.Summary, item.Description, item.Category, item.ImageURL, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("insert treatment", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTreatment(ctx context.Context, item Treatment) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE treatments
		SET slug=$2, title=$3, summary=$4, description=$5, category=$6, image_url=$7, sort_order=$8, published=$9, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Slug, item.Title, item.Summary, item.Description, item.Category, item.ImageURL, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("update treatment", err)
	}
	return expectAffected(res, "update treatment")
}

func (s *PostgresStore) DeleteTreatment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM treatments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete treatment: %w", err)
	}
	return expectAffected(res, "delete treatment")
}

func (s *PostgresStore) ReorderTreatments(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "treatments", ids)
}

const faqColumns = `id, question, answer, category, sort_order, published, created_at, updated_at`

func scanFAQ(row scanner) (FAQ, error) {
	var item FAQ
	err := row.Scan(&item.ID, &item.Question, &item.Answer, &item.Category, &item.SortOrder, &item.Published, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) ListFAQs(ctx context.Context, opts ListOptions) ([]FAQ, error) {
	clause, args := listClause(opts, "published", "category", "sort_order ASC, created_at ASC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+faqColumns+` FROM faqs`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	items := make([]FAQ, 0)
	for rows.Next() {
		item, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faqs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetFAQ(ctx context.Context, id string) (FAQ, error) {
	item, err := scanFAQ(s.db.QueryRowContext(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id=$1`, id))
	if err != nil {
		return FAQ{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertFAQ(ctx context.Context, item FAQ) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faqs (id, question, answer, category, sort_order, published)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.Question, item.Answer, item.Category, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("insert faq", err)
	}
	return nil
}

func (s *PostgresStore) UpdateFAQ(ctx context.Context, item FAQ) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE faqs SET question=$2, answer=$3, category=$4, sort_order=$5, published=$6, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Question, item.Answer, item.Category, item.SortOrder, item.Published)
	if err != nil {
		return writeErr("update faq", err)
	}
	return expectAffected(res, "update faq")
}

func (s *PostgresStore) DeleteFAQ(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM faqs WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return expectAffected(res, "delete faq")
}

func (s *PostgresStore) ReorderFAQs(ctx context.Context, ids []string) error {
	return s.reorder(ctx, "faqs", ids)
}

const noticeColumns = `id, title, body, pinned, published, published_at, view_count, created_at, updated_at`

func scanNotice(row scanner) (Notice, error) {
	var item Notice
	var publishedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Title, &item.Body, &item.Pinned, &item.Published, &publishedAt, &item.ViewCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Notice{}, err
	}
	item.PublishedAt = timePtr(publishedAt)
	return item, nil
}

func (s *PostgresStore) ListNotices(ctx context.Context, opts ListOptions) ([]Notice, error) {
	clause, args := listClause(opts, "published", "", "pinned DESC, COALESCE(published_at, created_at) DESC")
	rows, err := s.db.QueryContext(ctx, `SELECT `+noticeColumns+` FROM notices`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	items := make([]Notice, 0)
	for rows.Next() {
		item, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountNotices(ctx context.Context, publishedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM notices`
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetNotice(ctx context.Context, id string) (Notice, error) {
	item, err := scanNotice(s.db.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id=$1`, id))
	if err != nil {
		return Notice{}, notFound(err)
	}
	return item, nil
}

func (s *PostgresStore) InsertNotice(ctx context.Context, item Notice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notices (id, title, body, pinned, published, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.Title, item.Body, item.Pinned, item.Published, nullTime(item.PublishedAt))
	if err != nil {
		return writeErr("insert notice", err)
	}
	return nil
}

func (s *PostgresStore) UpdateNotice(ctx context.Context, item Notice) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notices SET title=$2, body=$3, pinned=$4, published=$5, published_at=$6, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, item.Body, item.Pinned, item.Published, nullTime(item.PublishedAt))
	if err != nil {
		return writeErr("update notice", err)
	}
	return expectAffected(res, "update notice")
}

func (s *PostgresStore) DeleteNotice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notices WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return expectAffected(res, "delete notice")
}

func (s *PostgresStore) IncrementNoticeViews(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE notices SET view_count = view_count + 1 WHERE id=$1`, id); err != nil {
		return fmt.Errorf("increment notice views: %w", err)
	}
	return nil
}
