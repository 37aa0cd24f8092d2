package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type multiSearchBody struct {
	Federation *struct {
		Limit  int64 `json:"limit"`
		Offset int64 `json:"offset"`
	} `json:"federation"`
	Queries []map[string]json.RawMessage `json:"queries"`
}

// newFakeMeili answers health and settings calls and serves a federated
// multi-search over perIndex documents in each queried index.
func newFakeMeili(t *testing.T, perIndex int) (*httptest.Server, func() multiSearchBody) {
	t.Helper()
	var (
		mu   sync.Mutex
		last multiSearchBody
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"available"}`))
		case "/multi-search":
			var body multiSearchBody
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mu.Lock()
			last = body
			mu.Unlock()

			limit, offset := int64(20), int64(0)
			if body.Federation != nil {
				limit, offset = body.Federation.Limit, body.Federation.Offset
			}
			total := int64(perIndex * len(body.Queries))
			hits := []map[string]any{}
			for i := offset; i < total && int64(len(hits)) < limit; i++ {
				hits = append(hits, map[string]any{
					"id":    fmt.Sprintf("t-%d", i),
					"type":  string(ResultTreatment),
					"title": "Vitamin drip",
					"body":  "vitamin infusion",
					"slug":  fmt.Sprintf("drip-%d", i),
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"hits":               hits,
				"offset":             offset,
				"limit":              limit,
				"estimatedTotalHits": total,
				"processingTimeMs":   1,
			})
		default:
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"taskUid":1,"status":"enqueued"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() multiSearchBody {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestMeiliSearchPagesAcrossIndexes(t *testing.T) {
	srv, lastBody := newFakeMeili(t, 50)
	m := NewMeili(srv.URL, "", nil)
	defer m.Close()
	if !m.Healthy() {
		t.Fatal("expected healthy client")
	}

	results, total, err := m.Search(context.Background(), Query{Text: "vitamin", Limit: 5, Offset: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if total != 200 {
		t.Fatalf("expected total 200, got %d", total)
	}
	if results[0].ID != "t-10" {
		t.Fatalf("expected first hit at global offset 10, got %q", results[0].ID)
	}
	if results[0].URL == "" {
		t.Fatal("expected public url on hit")
	}

	body := lastBody()
	if body.Federation == nil || body.Federation.Limit != 5 || body.Federation.Offset != 10 {
		t.Fatalf("expected federated paging, got %+v", body.Federation)
	}
	if len(body.Queries) != len(AllTypes) {
		t.Fatalf("expected %d queries, got %d", len(AllTypes), len(body.Queries))
	}
	for _, q := range body.Queries {
		if _, ok := q["limit"]; ok {
			t.Fatalf("per-index limit must not be sent: %v", q)
		}
		if _, ok := q["offset"]; ok {
			t.Fatalf("per-index offset must not be sent: %v", q)
		}
	}
}

func TestMeiliSearchFilterQueriesOneIndex(t *testing.T) {
	srv, lastBody := newFakeMeili(t, 3)
	m := NewMeili(srv.URL, "", nil)
	defer m.Close()

	results, total, err := m.Search(context.Background(), Query{Text: "vitamin", FilterType: ResultFAQ})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 || total != 3 {
		t.Fatalf("expected 3 of 3 results, got %d of %d", len(results), total)
	}
	body := lastBody()
	if len(body.Queries) != 1 {
		t.Fatalf("expected a single query, got %d", len(body.Queries))
	}
	var uid string
	_ = json.Unmarshal(body.Queries[0]["indexUid"], &uid)
	if uid != indexUIDs[ResultFAQ] {
		t.Fatalf("expected faq index, got %q", uid)
	}
	if body.Federation == nil || body.Federation.Limit != 20 {
		t.Fatalf("expected default federated limit 20, got %+v", body.Federation)
	}
}
