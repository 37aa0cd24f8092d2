// Package site renders the public clinic pages.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/logging"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/markup"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	noticesPerPage    = 10
	homeNoticeCount   = 5
	featuredTreatment = 6
)

// Source is the read side of the store the site renders from.
type Source interface {
	ListTreatments(ctx context.Context, opts store.ListOptions) ([]store.Treatment, error)
	GetTreatmentBySlug(ctx context.Context, slug string) (store.Treatment, error)
	ListFAQs(ctx context.Context, opts store.ListOptions) ([]store.FAQ, error)
	ListNotices(ctx context.Context, opts store.ListOptions) ([]store.Notice, error)
	CountNotices(ctx context.Context, publishedOnly bool) (int, error)
	GetNotice(ctx context.Context, id string) (store.Notice, error)
	IncrementNoticeViews(ctx context.Context, id string) error
	ListMarqueeItems(ctx context.Context, opts store.ListOptions) ([]store.MarqueeItem, error)
	ListHeroImages(ctx context.Context, opts store.ListOptions) ([]store.HeroImage, error)
	GetPageHeading(ctx context.Context, pageKey string) (store.PageHeading, error)
	GetPageHero(ctx context.Context, pageKey string) (store.PageHero, error)
	ListEquipment(ctx context.Context, opts store.ListOptions) ([]store.Equipment, error)
	ListArticles(ctx context.Context, opts store.ListOptions) ([]store.Article, error)
	ListArticleCategories(ctx context.Context) ([]string, error)
	GetArticleBySlug(ctx context.Context, slug string) (store.Article, error)
}

var errNotFound = errors.New("page not found")

type Handler struct {
	source   Source
	siteName string
	pages    map[string]*template.Template
	logger   *zap.Logger
}

var funcs = template.FuncMap{
	"markdown": markup.ToHTML,
	"excerpt":  markup.Excerpt,
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006.01.02")
	},
	"opacity": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

var pageNames = []string{"home", "treatments", "treatment", "faq", "notices", "notice", "equipment", "health-info", "article", "not-found"}

func NewHandler(source Source, siteName string, logger *zap.Logger) (*Handler, error) {
	logger = logging.OrNop(logger)
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tmpl, err := clone.ParseFS(templatesFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Handler{source: source, siteName: siteName, pages: pages, logger: logger.Named("site")}, nil
}

// chrome is shared by every page: navigation, marquee, heading and hero.
type chrome struct {
	SiteName string
	PageKey  string
	Title    string
	Marquee  []store.MarqueeItem
	Heading  *store.PageHeading
	Hero     *store.PageHero
}

type view struct {
	chrome
	Data any
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := splitPath(r.URL.Path)
	var err error
	switch {
	case len(parts) == 0:
		err = h.home(w, r)
	case parts[0] == "treatments" && len(parts) == 1:
		err = h.treatments(w, r)
	case parts[0] == "treatments" && len(parts) == 2:
		err = h.treatment(w, r, parts[1])
	case parts[0] == "faq" && len(parts) == 1:
		err = h.faq(w, r)
	case parts[0] == "notices" && len(parts) == 1:
		err = h.notices(w, r)
	case parts[0] == "notices" && len(parts) == 2:
		err = h.notice(w, r, parts[1])
	case parts[0] == "equipment" && len(parts) == 1:
		err = h.equipment(w, r)
	case parts[0] == "health-info" && len(parts) == 1:
		err = h.healthInfo(w, r)
	case parts[0] == "health-info" && len(parts) == 2:
		err = h.article(w, r, parts[1])
	default:
		err = errNotFound
	}
	if err == nil {
		return
	}
	if errors.Is(err, errNotFound) || errors.Is(err, store.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	h.logger.Error("render page", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (h *Handler) chrome(ctx context.Context, pageKey, title string) (chrome, error) {
	c := chrome{SiteName: h.siteName, PageKey: pageKey, Title: title}
	marquee, err := h.source.ListMarqueeItems(ctx, store.ListOptions{PublishedOnly: true})
	if err != nil {
		return c, err
	}
	c.Marquee = marquee
	if pageKey == "" {
		return c, nil
	}
	if heading, err := h.source.GetPageHeading(ctx, pageKey); err == nil {
		c.Heading = &heading
	} else if !errors.Is(err, store.ErrNotFound) {
		return c, err
	}
	if hero, err := h.source.GetPageHero(ctx, pageKey); err == nil {
		c.Hero = &hero
	} else if !errors.Is(err, store.ErrNotFound) {
		return c, err
	}
	return c, nil
}

// render buffers the page so a template error never leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, pageKey, title string, data any) error {
	c, err := h.chrome(r.Context(), pageKey, title)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout.html", view{chrome: c, Data: data}); err != nil {
		return fmt.Errorf("execute %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}
	return nil
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if err := h.render(w, r, http.StatusNotFound, "not-found", "", "Page not found", nil); err != nil {
		h.logger.Error("render not found page", zap.Error(err))
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	heroes, err := h.source.ListHeroImages(ctx, store.ListOptions{PublishedOnly: true})
	if err != nil {
		return err
	}
	notices, err := h.source.ListNotices(ctx, store.ListOptions{PublishedOnly: true, Limit: homeNoticeCount})
	if err != nil {
		return err
	}
	treatments, err := h.source.ListTreatments(ctx, store.ListOptions{PublishedOnly: true, Limit: featuredTreatment})
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "home", "home", "", map[string]any{
		"HeroImages": heroes,
		"Notices":    notices,
		"Treatments": treatments,
	})
}

func (h *Handler) treatments(w http.ResponseWriter, r *http.Request) error {
	items, err := h.source.ListTreatments(r.Context(), store.ListOptions{PublishedOnly: true, Limit: store.MaxListLimit})
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "treatments", "treatments", "Treatments", items)
}

func (h *Handler) treatment(w http.ResponseWriter, r *http.Request, slug string) error {
	item, err := h.source.GetTreatmentBySlug(r.Context(), slug)
	if err != nil {
		return err
	}
	if !item.Published {
		return errNotFound
	}
	return h.render(w, r, http.StatusOK, "treatment", "treatments", item.Title, item)
}

// FAQGroup is the FAQs sharing one category.
type FAQGroup struct {
	Category string
	Items    []store.FAQ
}

func groupFAQs(items []store.FAQ) []FAQGroup {
	index := map[string]int{}
	var groups []FAQGroup
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups)
			index[item.Category] = i
			groups = append(groups, FAQGroup{Category: item.Category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	// Uncategorized questions go last.
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Category != "" && groups[b].Category == ""
	})
	return groups
}

func (h *Handler) faq(w http.ResponseWriter, r *http.Request) error {
	items, err := h.source.ListFAQs(r.Context(), store.ListOptions{PublishedOnly: true, Limit: store.MaxListLimit})
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "faq", "faq", "FAQ", groupFAQs(items))
}

// Pagination describes the page links under a list.
type Pagination struct {
	Page, Pages int
	Prev, Next  int
}

func paginate(page, total, perPage int) Pagination {
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	p := Pagination{Page: page, Pages: pages}
	if page > 1 {
		p.Prev = page - 1
	}
	if page < pages {
		p.Next = page + 1
	}
	return p
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handler) notices(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	page := pageParam(r)
	total, err := h.source.CountNotices(ctx, true)
	if err != nil {
		return err
	}
	items, err := h.source.ListNotices(ctx, store.ListOptions{PublishedOnly: true, Limit: noticesPerPage, Offset: (page - 1) * noticesPerPage})
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "notices", "notices", "Notices", map[string]any{
		"Items":      items,
		"Pagination": paginate(page, total, noticesPerPage),
	})
}

func (h *Handler) notice(w http.ResponseWriter, r *http.Request, id string) error {
	ctx := r.Context()
	item, err := h.source.GetNotice(ctx, id)
	if err != nil {
		return err
	}
	if !item.Published {
		return errNotFound
	}
	if r.Method == http.MethodGet {
		if err := h.source.IncrementNoticeViews(ctx, id); err != nil {
			h.logger.Warn("increment notice views", zap.String("notice_id", id), zap.Error(err))
		} else {
			item.ViewCount++
		}
	}
	return h.render(w, r, http.StatusOK, "notice", "notices", item.Title, item)
}

func (h *Handler) equipment(w http.ResponseWriter, r *http.Request) error {
	items, err := h.source.ListEquipment(r.Context(), store.ListOptions{PublishedOnly: true, Limit: store.MaxListLimit})
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "equipment", "equipment", "Equipment", items)
}

func (h *Handler) healthInfo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	items, err := h.source.ListArticles(ctx, store.ListOptions{PublishedOnly: true, Category: category, Limit: store.MaxListLimit})
	if err != nil {
		return err
	}
	categories, err := h.source.ListArticleCategories(ctx)
	if err != nil {
		return err
	}
	return h.render(w, r, http.StatusOK, "health-info", "health-info", "Health Info", map[string]any{
		"Items":      items,
		"Categories": categories,
		"Category":   category,
	})
}

func (h *Handler) article(w http.ResponseWriter, r *http.Request, slug string) error {
	item, err := h.source.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		return err
	}
	if !item.Published {
		return errNotFound
	}
	return h.render(w, r, http.StatusOK, "article", "health-info", item.Title, item)
}
