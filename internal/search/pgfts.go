package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

type ftsSource struct {
	typ      ResultType
	table    string
	title    string
	body     string
	slug     string
	category string
}

var ftsSources = []ftsSource{
	{typ: ResultTreatment, table: "treatments", title: "title", body: "coalesce(summary, '') || ' ' || coalesce(description, '')", slug: "slug", category: "category"},
	{typ: ResultFAQ, table: "faqs", title: "question", body: "answer", slug: "''", category: "category"},
	{typ: ResultNotice, table: "notices", title: "title", body: "body", slug: "''", category: "''"},
	{typ: ResultArticle, table: "health_info_articles", title: "title", body: "coalesce(summary, '') || ' ' || coalesce(body, '')", slug: "slug", category: "category"},
}

// Search runs one UNION ALL over the published rows of every searchable
// table, ranked with ts_rank and excerpted with ts_headline.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	q = normalizeQuery(q)

	const tsQuery = "plainto_tsquery('simple', $1)"
	var subQueries []string
	for _, src := range ftsSources {
		if q.FilterType != "" && q.FilterType != src.typ {
			continue
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT '%s'::text AS type, t.id, t.%s AS title,
				ts_headline('simple', %s, %s, 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>') AS snippet,
				%s AS slug,
				ts_rank(t.fts, %s) AS rank
			FROM %s t
			WHERE t.published AND t.fts @@ %s`,
			src.typ, src.title, src.body, tsQuery, src.slug, tsQuery, src.table, tsQuery))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}
	union := strings.Join(subQueries, " UNION ALL ")

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM ("+union+") sub", q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, slug
		FROM (%s) sub
		ORDER BY rank DESC, id
		LIMIT %d OFFSET %d`, union, q.Limit, q.Offset)
	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ, slug string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &slug); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		r.URL = PublicURL(r.Type, r.ID, slug)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every published searchable record for reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]Record, error) {
	records := make([]Record, 0)
	for _, src := range ftsSources {
		rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, %s, %s, %s, %s FROM %s WHERE published
		`, src.title, src.body, src.slug, src.category, src.table))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src.table, err)
		}
		for rows.Next() {
			rec := Record{Type: src.typ}
			if err := rows.Scan(&rec.ID, &rec.Title, &rec.Body, &rec.Slug, &rec.Category); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", src.table, err)
			}
			records = append(records, rec)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate %s: %w", src.table, err)
		}
	}
	return records, nil
}
