package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/content"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/export"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/revisions"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
	"go.uber.org/zap"
)

type ArticleInput struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Body         string `json:"body"`
	Category     string `json:"category"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Published    bool   `json:"published"`
	// Message is the revision message; a default is used when empty.
	Message string `json:"message"`
}

// RevisionView is one entry of an article's history.
type RevisionView struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

const revisionHistoryLimit = 100

func revisionView(c store.CommitInfo) RevisionView {
	return RevisionView{Hash: c.Hash, Message: c.Message, Author: c.Author, CreatedAt: c.CreatedAt.UTC()}
}

func articleRecord(a store.Article) search.Record {
	return search.Record{ID: a.ID, Type: search.ResultArticle, Title: a.Title, Body: a.Summary + "\n" + a.Body, Slug: a.Slug, Category: a.Category}
}

func (in ArticleInput) apply(a *store.Article) {
	a.Slug, a.Title, a.Summary, a.Body = in.Slug, in.Title, in.Summary, in.Body
	a.Category, a.ThumbnailURL, a.Published = in.Category, in.ThumbnailURL, in.Published
}

func (s *Service) ListArticles(ctx context.Context, opts store.ListOptions) ([]ArticleView, error) {
	items, err := s.store.ListArticles(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, articleView), nil
}

func (s *Service) ArticleCategories(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListArticleCategories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *Service) GetArticle(ctx context.Context, id string) (ArticleView, error) {
	item, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return ArticleView{}, storeErr("Article", err)
	}
	return articleView(item), nil
}

// PublishedArticle looks up a published article by slug.
func (s *Service) PublishedArticle(ctx context.Context, slug string) (store.Article, error) {
	item, err := s.store.GetArticleBySlug(ctx, slug)
	if err != nil {
		return store.Article{}, storeErr("Article", err)
	}
	if !item.Published {
		return store.Article{}, notFoundError("Article")
	}
	return item, nil
}

func (s *Service) CreateArticle(ctx context.Context, actor Actor, in ArticleInput) (ArticleView, error) {
	if err := s.requirePublish(actor, in.Published); err != nil {
		return ArticleView{}, err
	}
	item := store.Article{ID: util.NewID("art"), UpdatedBy: actor.UserName}
	in.apply(&item)
	if fields := content.Article(&item); fields != nil {
		return ArticleView{}, validationError(fields)
	}
	if item.Published {
		now := s.now().UTC()
		item.PublishedAt = &now
	}
	if err := s.store.InsertArticle(ctx, item); err != nil {
		return ArticleView{}, storeErr("Article", err)
	}
	if saved, err := s.store.GetArticle(ctx, item.ID); err == nil {
		item = saved
	}
	s.commitRevision(item, actor, revisionMessage(in.Message, "Create article"))
	view := articleView(item)
	s.record(ctx, actor, audit.ActionCreate, "article", item.ID, item.Title, view)
	s.indexRecord(articleRecord(item), item.Published)
	return view, nil
}

func (s *Service) UpdateArticle(ctx context.Context, actor Actor, id string, in ArticleInput) (ArticleView, error) {
	before, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return ArticleView{}, storeErr("Article", err)
	}
	if err := s.requirePublish(actor, in.Published && !before.Published); err != nil {
		return ArticleView{}, err
	}
	item := before
	in.apply(&item)
	item.UpdatedBy = actor.UserName
	if fields := content.Article(&item); fields != nil {
		return ArticleView{}, validationError(fields)
	}
	return s.saveArticle(ctx, actor, before, item, revisionMessage(in.Message, "Update article"))
}

func (s *Service) saveArticle(ctx context.Context, actor Actor, before, item store.Article, message string) (ArticleView, error) {
	if item.Published && item.PublishedAt == nil {
		now := s.now().UTC()
		item.PublishedAt = &now
	}
	s.ensureBaseline(before, actor)
	if err := s.store.UpdateArticle(ctx, item); err != nil {
		return ArticleView{}, storeErr("Article", err)
	}
	if saved, err := s.store.GetArticle(ctx, item.ID); err == nil {
		item = saved
	}
	s.commitRevision(item, actor, message)
	view := articleView(item)
	s.record(ctx, actor, audit.ActionUpdate, "article", item.ID, item.Title, audit.Change(articleView(before), view))
	s.indexRecord(articleRecord(item), item.Published)
	return view, nil
}

func (s *Service) DeleteArticle(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return storeErr("Article", err)
	}
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		return storeErr("Article", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "article", id, before.Title, articleView(before))
	s.removeRecord(search.ResultArticle, id)
	s.removeRevisions(id)
	return nil
}

func revisionMessage(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return util.Truncate(message, 200)
}

// ensureBaseline gives articles created before revisions existed (legacy
// imports, for one) a first commit holding their current content.
func (s *Service) ensureBaseline(article store.Article, actor Actor) {
	if s.revisions == nil {
		return
	}
	if err := s.revisions.Ensure(article.ID, revisions.FromArticle(article), actor.UserName); err != nil {
		s.logger.Error("ensure article revisions", zap.String("article_id", article.ID), zap.Error(err))
	}
}

func (s *Service) commitRevision(article store.Article, actor Actor, message string) {
	if s.revisions == nil {
		return
	}
	if _, err := s.revisions.Commit(article.ID, revisions.FromArticle(article), actor.UserName, message); err != nil {
		s.logger.Error("commit article revision", zap.String("article_id", article.ID), zap.Error(err))
	}
}

func (s *Service) removeRevisions(articleID string) {
	if s.revisions == nil {
		return
	}
	if err := s.revisions.Remove(articleID); err != nil {
		s.logger.Error("remove article revisions", zap.String("article_id", articleID), zap.Error(err))
	}
}

func (s *Service) ArticleRevisions(ctx context.Context, id string) ([]RevisionView, error) {
	if _, err := s.store.GetArticle(ctx, id); err != nil {
		return nil, storeErr("Article", err)
	}
	if s.revisions == nil {
		return []RevisionView{}, nil
	}
	history, err := s.revisions.History(id, revisionHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("article history: %w", err)
	}
	return mapSlice(history, revisionView), nil
}

// ArticleRevision returns the content stored at hash and its diff against the
// current article.
func (s *Service) ArticleRevision(ctx context.Context, id, hash string) (map[string]any, error) {
	current, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, storeErr("Article", err)
	}
	if s.revisions == nil {
		return nil, notFoundError("Revision")
	}
	stored, info, err := s.revisions.ContentAt(id, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("Revision")
		}
		return nil, err
	}
	return map[string]any{
		"revision": revisionView(info),
		"content":  stored,
		"changes":  revisions.Diff(stored, revisions.FromArticle(current)),
	}, nil
}

// RestoreArticleRevision writes the content stored at hash back as the
// current article.
func (s *Service) RestoreArticleRevision(ctx context.Context, actor Actor, id, hash string) (ArticleView, error) {
	before, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return ArticleView{}, storeErr("Article", err)
	}
	if s.revisions == nil {
		return ArticleView{}, notFoundError("Revision")
	}
	stored, info, err := s.revisions.ContentAt(id, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ArticleView{}, notFoundError("Revision")
		}
		return ArticleView{}, err
	}
	if err := s.requirePublish(actor, stored.Published && !before.Published); err != nil {
		return ArticleView{}, err
	}

	item := before
	item.Title, item.Summary, item.Body = stored.Title, stored.Summary, stored.Body
	item.Category, item.Published = stored.Category, stored.Published
	item.UpdatedBy = actor.UserName
	if fields := content.Article(&item); fields != nil {
		return ArticleView{}, validationError(fields)
	}
	return s.saveArticle(ctx, actor, before, item, "Restore revision "+info.Hash)
}

// ArticleHandout renders the printable PDF for a published article.
func (s *Service) ArticleHandout(ctx context.Context, slug string) (*export.Result, error) {
	article, err := s.PublishedArticle(ctx, slug)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil || !s.exporter.Available() {
		return nil, errExportUnavailable
	}
	result, err := s.exporter.ArticlePDF(ctx, article)
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, errExportUnavailable
		}
		return nil, err
	}
	return result, nil
}
