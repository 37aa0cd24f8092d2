package search

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  Engine
	fallback Searcher
	source   RecordSource
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger *zap.Logger) *Service {
	var primary Engine
	if meili != nil {
		primary = meili
	}
	var fallback Searcher
	var source RecordSource
	if pgfts != nil {
		fallback, source = pgfts, pgfts
	}
	return newService(primary, fallback, source, logger)
}

func newService(primary Engine, fallback Searcher, source RecordSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{primary: primary, fallback: fallback, source: source, logger: logger.Named("search")}
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primaryReady() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to pgfts", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("pgfts error", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// Index pushes rec to Meilisearch in the background.
func (s *Service) Index(rec Record) {
	if !s.primaryReady() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.primary.Upsert([]Record{rec}); err != nil {
			s.logger.Warn("index record", zap.String("type", string(rec.Type)), zap.String("id", rec.ID), zap.Error(err))
		}
	}()
}

// Remove deletes a record from Meilisearch in the background.
func (s *Service) Remove(typ ResultType, id string) {
	if !s.primaryReady() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.primary.Delete(typ, id); err != nil {
			s.logger.Warn("remove record", zap.String("type", string(typ)), zap.String("id", id), zap.Error(err))
		}
	}()
}

// Flush blocks until background index writes have finished.
func (s *Service) Flush() {
	s.pending.Wait()
}

// Reindex rebuilds Meilisearch from Postgres and returns the record count.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.primary == nil {
		return 0, fmt.Errorf("meilisearch is not configured")
	}
	if !s.primary.Healthy() {
		return 0, fmt.Errorf("meilisearch is unavailable")
	}
	if s.source == nil {
		return 0, fmt.Errorf("no record source")
	}
	records, err := s.source.LoadAllRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	if err := s.primary.Reset(); err != nil {
		return 0, fmt.Errorf("reset indexes: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.primary.Upsert(records); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}
	s.logger.Info("reindexed search", zap.Int("records", len(records)))
	return len(records), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
