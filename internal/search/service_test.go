package search

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeEngine struct {
	mu        sync.Mutex
	healthy   bool
	searchErr error
	results   []Result
	upserted  []Record
	deleted   []string
	resets    int
}

func (f *fakeEngine) Search(context.Context, Query) ([]Result, int, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.results, len(f.results), nil
}

func (f *fakeEngine) Healthy() bool { return f.healthy }

func (f *fakeEngine) Upsert(records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeEngine) Delete(typ ResultType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, string(typ)+":"+id)
	return nil
}

func (f *fakeEngine) Reset() error {
	f.resets++
	return nil
}

type fakeFallback struct {
	calls   int
	results []Result
	err     error
}

func (f *fakeFallback) Search(context.Context, Query) ([]Result, int, error) {
	f.calls++
	return f.results, len(f.results), f.err
}

func (f *fakeFallback) Healthy() bool { return true }

type fakeSource struct{ records []Record }

func (f fakeSource) LoadAllRecords(context.Context) ([]Record, error) { return f.records, nil }

func TestSearchPrefersHealthyPrimary(t *testing.T) {
	primary := &fakeEngine{healthy: true, results: []Result{{Type: ResultFAQ, ID: "faq_1"}}}
	fallback := &fakeFallback{}
	svc := newService(primary, fallback, nil, nil)

	resp := svc.Search(context.Background(), Query{Text: "vitamin"})
	if len(resp.Results) != 1 || resp.Results[0].ID != "faq_1" || resp.Query != "vitamin" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback should not be used while primary is healthy")
	}
}

func TestSearchFallsBack(t *testing.T) {
	cases := []struct {
		name    string
		primary Engine
	}{
		{name: "no primary", primary: nil},
		{name: "unhealthy primary", primary: &fakeEngine{healthy: false}},
		{name: "primary error", primary: &fakeEngine{healthy: true, searchErr: errors.New("boom")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fallback := &fakeFallback{results: []Result{{Type: ResultNotice, ID: "ntc_1"}}}
			svc := newService(tc.primary, fallback, nil, nil)
			resp := svc.Search(context.Background(), Query{Text: "closed"})
			if fallback.calls != 1 || len(resp.Results) != 1 {
				t.Fatalf("expected fallback result, got %+v (calls=%d)", resp, fallback.calls)
			}
		})
	}
}

func TestSearchAlwaysReturnsNonNilResults(t *testing.T) {
	svc := newService(nil, &fakeFallback{err: errors.New("db down")}, nil, nil)
	resp := svc.Search(context.Background(), Query{Text: "x"})
	if resp.Results == nil {
		t.Fatal("results must be non-nil")
	}

	svc = newService(nil, &fakeFallback{}, nil, nil)
	if resp := svc.Search(context.Background(), Query{Text: "x"}); resp.Results == nil {
		t.Fatal("results must be non-nil for empty hits")
	}

	svc = newService(nil, nil, nil, nil)
	if resp := svc.Search(context.Background(), Query{Text: "x"}); resp.Results == nil {
		t.Fatal("results must be non-nil without any backend")
	}
}

func TestIndexAndRemoveAreAsync(t *testing.T) {
	primary := &fakeEngine{healthy: true}
	svc := newService(primary, nil, nil, nil)

	svc.Index(Record{ID: "trt_1", Type: ResultTreatment, Title: "IV therapy"})
	svc.Remove(ResultNotice, "ntc_9")
	svc.Flush()

	if len(primary.upserted) != 1 || primary.upserted[0].ID != "trt_1" {
		t.Fatalf("unexpected upserts: %+v", primary.upserted)
	}
	if len(primary.deleted) != 1 || primary.deleted[0] != "notice:ntc_9" {
		t.Fatalf("unexpected deletes: %+v", primary.deleted)
	}
}

func TestIndexSkipsUnhealthyPrimary(t *testing.T) {
	primary := &fakeEngine{healthy: false}
	svc := newService(primary, nil, nil, nil)
	svc.Index(Record{ID: "trt_1", Type: ResultTreatment})
	svc.Flush()
	if len(primary.upserted) != 0 {
		t.Fatal("nothing should be indexed while unhealthy")
	}
}

func TestReindex(t *testing.T) {
	primary := &fakeEngine{healthy: true}
	source := fakeSource{records: []Record{
		{ID: "trt_1", Type: ResultTreatment},
		{ID: "art_1", Type: ResultArticle},
	}}
	svc := newService(primary, nil, source, nil)

	n, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if n != 2 || primary.resets != 1 || len(primary.upserted) != 2 {
		t.Fatalf("unexpected reindex: n=%d resets=%d upserted=%d", n, primary.resets, len(primary.upserted))
	}

	if _, err := newService(nil, nil, source, nil).Reindex(context.Background()); err == nil {
		t.Fatal("expected error without meilisearch")
	}
}

func TestPublicURLAndParseType(t *testing.T) {
	cases := []struct {
		typ  ResultType
		id   string
		slug string
		want string
	}{
		{ResultTreatment, "trt_1", "iv-therapy", "/treatments/iv-therapy"},
		{ResultFAQ, "faq_1", "", "/faq#faq-faq_1"},
		{ResultNotice, "ntc_1", "", "/notices/ntc_1"},
		{ResultArticle, "art_1", "vitamin-d", "/health-info/vitamin-d"},
	}
	for _, tc := range cases {
		if got := PublicURL(tc.typ, tc.id, tc.slug); got != tc.want {
			t.Errorf("PublicURL(%s) = %q, want %q", tc.typ, got, tc.want)
		}
	}

	if typ, ok := ParseType("article"); !ok || typ != ResultArticle {
		t.Fatalf("ParseType(article) = %q %v", typ, ok)
	}
	if typ, ok := ParseType(""); !ok || typ != "" {
		t.Fatalf("ParseType(empty) = %q %v", typ, ok)
	}
	if _, ok := ParseType("document"); ok {
		t.Fatal("document is not a searchable type")
	}
}

func TestNormalizeQuery(t *testing.T) {
	q := normalizeQuery(Query{Limit: 0, Offset: -3})
	if q.Limit != 20 || q.Offset != 0 {
		t.Fatalf("unexpected defaults %+v", q)
	}
	if q := normalizeQuery(Query{Limit: 1000}); q.Limit != 100 {
		t.Fatalf("limit should clamp to 100, got %d", q.Limit)
	}
}
