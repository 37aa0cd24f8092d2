package search

import (
	"context"
	"net/url"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTreatment ResultType = "treatment"
	ResultFAQ       ResultType = "faq"
	ResultNotice    ResultType = "notice"
	ResultArticle   ResultType = "article"
)

// AllTypes lists the searchable record types in display order.
var AllTypes = []ResultType{ResultTreatment, ResultFAQ, ResultNotice, ResultArticle}

// ParseType returns the type named by value. Empty means all types.
func ParseType(value string) (ResultType, bool) {
	if value == "" {
		return "", true
	}
	for _, t := range AllTypes {
		if string(t) == value {
			return t, true
		}
	}
	return "", false
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	URL     string     `json:"url"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Record is what gets indexed for any searchable entity.
type Record struct {
	ID       string     `json:"id"`
	Type     ResultType `json:"type"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	Slug     string     `json:"slug"`
	Category string     `json:"category"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Engine is a searcher that also owns an index it can write to.
type Engine interface {
	Searcher
	Upsert(records []Record) error
	Delete(typ ResultType, id string) error
	Reset() error
}

// RecordSource loads every published searchable record.
type RecordSource interface {
	LoadAllRecords(ctx context.Context) ([]Record, error)
}

// PublicURL is the site path a hit links to.
func PublicURL(typ ResultType, id, slug string) string {
	switch typ {
	case ResultTreatment:
		return "/treatments/" + url.PathEscape(slug)
	case ResultFAQ:
		return "/faq#faq-" + id
	case ResultNotice:
		return "/notices/" + url.PathEscape(id)
	case ResultArticle:
		return "/health-info/" + url.PathEscape(slug)
	default:
		return "/"
	}
}

func normalizeQuery(q Query) Query {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
