package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

var indexUIDs = map[ResultType]string{
	ResultTreatment: "clinic_treatments",
	ResultFAQ:       "clinic_faqs",
	ResultNotice:    "clinic_notices",
	ResultArticle:   "clinic_articles",
}

// Meili implements Engine via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An
// unreachable server leaves the client unhealthy until the health loop
// sees it recover.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger.Named("search"),
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	filterable := []interface{}{"category"}
	searchable := []string{"title", "body", "category"}

	for _, typ := range AllTypes {
		uid := indexUIDs[typ]
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: uid, PrimaryKey: "id"}); err != nil {
			m.logger.Debug("create index (may already exist)", zap.String("index", uid), zap.Error(err))
		}
		index := m.client.Index(uid)
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn("update filterable attributes", zap.String("index", uid), zap.Error(err))
		}
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.logger.Warn("update searchable attributes", zap.String("index", uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries every index (or the filtered one) in one federated
// multi-search, so limit and offset apply to the merged ranking.
func (m *Meili) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	q = normalizeQuery(q)

	var queries []*meili.SearchRequest
	for _, typ := range AllTypes {
		if q.FilterType != "" && q.FilterType != typ {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              indexUIDs[typ],
			Query:                 q.Text,
			AttributesToHighlight: []string{"title", "body"},
			AttributesToCrop:      []string{"body"},
			CropLength:            30,
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		})
	}

	resp, err := m.client.MultiSearchWithContext(ctx, &meili.MultiSearchRequest{
		Federation: &meili.MultiSearchFederation{
			Limit:  int64(q.Limit),
			Offset: int64(q.Offset),
		},
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		Type: ResultType(decodeString(hit, "type")),
		ID:   decodeString(hit, "id"),
	}
	r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
	r.Snippet = firstNonBlank(decodeFormattedString(hit, "body"), decodeString(hit, "body"))
	r.URL = PublicURL(r.Type, r.ID, decodeString(hit, "slug"))
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// Upsert adds or replaces records, grouped by their index.
func (m *Meili) Upsert(records []Record) error {
	byType := make(map[ResultType][]Record)
	for _, rec := range records {
		byType[rec.Type] = append(byType[rec.Type], rec)
	}
	for typ, batch := range byType {
		uid, ok := indexUIDs[typ]
		if !ok {
			return fmt.Errorf("unknown search type %q", typ)
		}
		if _, err := m.client.Index(uid).AddDocuments(batch, nil); err != nil {
			return fmt.Errorf("index %s: %w", uid, err)
		}
	}
	return nil
}

func (m *Meili) Delete(typ ResultType, id string) error {
	uid, ok := indexUIDs[typ]
	if !ok {
		return fmt.Errorf("unknown search type %q", typ)
	}
	_, err := m.client.Index(uid).DeleteDocument(id, nil)
	return err
}

// Reset drops and recreates every index.
func (m *Meili) Reset() error {
	for _, typ := range AllTypes {
		if _, err := m.client.DeleteIndex(indexUIDs[typ]); err != nil {
			m.logger.Debug("delete index", zap.String("index", indexUIDs[typ]), zap.Error(err))
		}
	}
	m.configureIndexes()
	return nil
}
