package app

import (
	"context"
	"errors"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/content"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/rbac"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
)

type TreatmentInput struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl"`
	SortOrder   int    `json:"sortOrder"`
	Published   bool   `json:"published"`
}

type FAQInput struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category"`
	SortOrder int    `json:"sortOrder"`
	Published bool   `json:"published"`
}

type NoticeInput struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Pinned    bool   `json:"pinned"`
	Published bool   `json:"published"`
}

type MarqueeInput struct {
	Text      string `json:"text"`
	LinkURL   string `json:"linkUrl"`
	SortOrder int    `json:"sortOrder"`
	Active    bool   `json:"active"`
}

type HeroImageInput struct {
	ImageURL  string `json:"imageUrl"`
	AltText   string `json:"altText"`
	LinkURL   string `json:"linkUrl"`
	SortOrder int    `json:"sortOrder"`
	Active    bool   `json:"active"`
}

type PageHeadingInput struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type PageHeroInput struct {
	ImageURL       string   `json:"imageUrl"`
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle"`
	OverlayOpacity *float64 `json:"overlayOpacity"`
}

type EquipmentInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Manufacturer string `json:"manufacturer"`
	ImageURL     string `json:"imageUrl"`
	SortOrder    int    `json:"sortOrder"`
	Published    bool   `json:"published"`
}

const defaultOverlayOpacity = 0.4

// storeErr turns store sentinels into API errors for entity.
func storeErr(entity string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundError(entity)
	case errors.Is(err, store.ErrConflict):
		return errSlugTaken
	}
	return err
}

func (s *Service) requirePublish(actor Actor, published bool) error {
	if published {
		return s.require(actor, rbac.ActionPublish)
	}
	return nil
}

// reorder validates ids and applies them through apply in one call.
func (s *Service) reorder(ctx context.Context, actor Actor, entityType string, ids []string, apply func(context.Context, []string) error) error {
	if len(ids) == 0 {
		return invalidField("ids", "must list at least one id")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return invalidField("ids", "must not contain duplicates")
		}
		seen[id] = struct{}{}
	}
	if err := apply(ctx, ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidField("ids", "contains an unknown id")
		}
		return err
	}
	s.record(ctx, actor, audit.ActionReorder, entityType, "", "reordered", map[string]any{"ids": ids})
	return nil
}

func treatmentRecord(t store.Treatment) search.Record {
	return search.Record{ID: t.ID, Type: search.ResultTreatment, Title: t.Title, Body: t.Summary + "\n" + t.Description, Slug: t.Slug, Category: t.Category}
}

func faqRecord(f store.FAQ) search.Record {
	return search.Record{ID: f.ID, Type: search.ResultFAQ, Title: f.Question, Body: f.Answer, Category: f.Category}
}

func noticeRecord(n store.Notice) search.Record {
	return search.Record{ID: n.ID, Type: search.ResultNotice, Title: n.Title, Body: n.Body}
}

// Treatments

func (s *Service) ListTreatments(ctx context.Context, opts store.ListOptions) ([]TreatmentView, error) {
	items, err := s.store.ListTreatments(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, treatmentView), nil
}

func (s *Service) GetTreatment(ctx context.Context, id string) (TreatmentView, error) {
	item, err := s.store.GetTreatment(ctx, id)
	if err != nil {
		return TreatmentView{}, storeErr("Treatment", err)
	}
	return treatmentView(item), nil
}

func (s *Service) PublicTreatment(ctx context.Context, slug string) (TreatmentView, error) {
	item, err := s.store.GetTreatmentBySlug(ctx, slug)
	if err != nil {
		return TreatmentView{}, storeErr("Treatment", err)
	}
	if !item.Published {
		return TreatmentView{}, notFoundError("Treatment")
	}
	return treatmentView(item), nil
}

func (in TreatmentInput) apply(t *store.Treatment) {
	t.Slug, t.Title, t.Summary, t.Description = in.Slug, in.Title, in.Summary, in.Description
	t.Category, t.ImageURL, t.SortOrder, t.Published = in.Category, in.ImageURL, in.SortOrder, in.Published
}

func (s *Service) CreateTreatment(ctx context.Context, actor Actor, in TreatmentInput) (TreatmentView, error) {
	if err := s.requirePublish(actor, in.Published); err != nil {
		return TreatmentView{}, err
	}
	item := store.Treatment{ID: util.NewID("trt")}
	in.apply(&item)
	if fields := content.Treatment(&item); fields != nil {
		return TreatmentView{}, validationError(fields)
	}
	if err := s.store.InsertTreatment(ctx, item); err != nil {
		return TreatmentView{}, storeErr("Treatment", err)
	}
	if saved, err := s.store.GetTreatment(ctx, item.ID); err == nil {
		item = saved
	}
	view := treatmentView(item)
	s.record(ctx, actor, audit.ActionCreate, "treatment", item.ID, item.Title, view)
	s.indexRecord(treatmentRecord(item), item.Published)
	return view, nil
}

func (s *Service) UpdateTreatment(ctx context.Context, actor Actor, id string, in TreatmentInput) (TreatmentView, error) {
	before, err := s.store.GetTreatment(ctx, id)
	if err != nil {
		return TreatmentView{}, storeErr("Treatment", err)
	}
	if err := s.requirePublish(actor, in.Published && !before.Published); err != nil {
		return TreatmentView{}, err
	}
	item := before
	in.apply(&item)
	if fields := content.Treatment(&item); fields != nil {
		return TreatmentView{}, validationError(fields)
	}
	if err := s.store.UpdateTreatment(ctx, item); err != nil {
		return TreatmentView{}, storeErr("Treatment", err)
	}
	if saved, err := s.store.GetTreatment(ctx, id); err == nil {
		item = saved
	}
	view := treatmentView(item)
	s.record(ctx, actor, audit.ActionUpdate, "treatment", id, item.Title, audit.Change(treatmentView(before), view))
	s.indexRecord(treatmentRecord(item), item.Published)
	return view, nil
}

func (s *Service) DeleteTreatment(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetTreatment(ctx, id)
	if err != nil {
		return storeErr("Treatment", err)
	}
	if err := s.store.DeleteTreatment(ctx, id); err != nil {
		return storeErr("Treatment", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "treatment", id, before.Title, treatmentView(before))
	s.removeRecord(search.ResultTreatment, id)
	return nil
}

func (s *Service) ReorderTreatments(ctx context.Context, actor Actor, ids []string) error {
	return s.reorder(ctx, actor, "treatment", ids, s.store.ReorderTreatments)
}

// FAQs

func (s *Service) ListFAQs(ctx context.Context, opts store.ListOptions) ([]FAQView, error) {
	items, err := s.store.ListFAQs(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, faqView), nil
}

func (s *Service) GetFAQ(ctx context.Context, id string) (FAQView, error) {
	item, err := s.store.GetFAQ(ctx, id)
	if err != nil {
		return FAQView{}, storeErr("FAQ", err)
	}
	return faqView(item), nil
}

func (in FAQInput) apply(f *store.FAQ) {
	f.Question, f.Answer, f.Category, f.SortOrder, f.Published = in.Question, in.Answer, in.Category, in.SortOrder, in.Published
}

func (s *Service) CreateFAQ(ctx context.Context, actor Actor, in FAQInput) (FAQView, error) {
	if err := s.requirePublish(actor, in.Published); err != nil {
		return FAQView{}, err
	}
	item := store.FAQ{ID: util.NewID("faq")}
	in.apply(&item)
	if fields := content.FAQ(&item); fields != nil {
		return FAQView{}, validationError(fields)
	}
	if err := s.store.InsertFAQ(ctx, item); err != nil {
		return FAQView{}, storeErr("FAQ", err)
	}
	if saved, err := s.store.GetFAQ(ctx, item.ID); err == nil {
		item = saved
	}
	view := faqView(item)
	s.record(ctx, actor, audit.ActionCreate, "faq", item.ID, util.Truncate(item.Question, 80), view)
	s.indexRecord(faqRecord(item), item.Published)
	return view, nil
}

func (s *Service) UpdateFAQ(ctx context.Context, actor Actor, id string, in FAQInput) (FAQView, error) {
	before, err := s.store.GetFAQ(ctx, id)
	if err != nil {
		return FAQView{}, storeErr("FAQ", err)
	}
	if err := s.requirePublish(actor, in.Published && !before.Published); err != nil {
		return FAQView{}, err
	}
	item := before
	in.apply(&item)
	if fields := content.FAQ(&item); fields != nil {
		return FAQView{}, validationError(fields)
	}
	if err := s.store.UpdateFAQ(ctx, item); err != nil {
		return FAQView{}, storeErr("FAQ", err)
	}
	if saved, err := s.store.GetFAQ(ctx, id); err == nil {
		item = saved
	}
	view := faqView(item)
	s.record(ctx, actor, audit.ActionUpdate, "faq", id, util.Truncate(item.Question, 80), audit.Change(faqView(before), view))
	s.indexRecord(faqRecord(item), item.Published)
	return view, nil
}

func (s *Service) DeleteFAQ(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetFAQ(ctx, id)
	if err != nil {
		return storeErr("FAQ", err)
	}
	if err := s.store.DeleteFAQ(ctx, id); err != nil {
		return storeErr("FAQ", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "faq", id, util.Truncate(before.Question, 80), faqView(before))
	s.removeRecord(search.ResultFAQ, id)
	return nil
}

func (s *Service) ReorderFAQs(ctx context.Context, actor Actor, ids []string) error {
	return s.reorder(ctx, actor, "faq", ids, s.store.ReorderFAQs)
}

// Notices

// NoticePage is one page of notices plus the total for pagination.
type NoticePage struct {
	Items []NoticeView `json:"items"`
	Total int          `json:"total"`
}

func (s *Service) ListNotices(ctx context.Context, opts store.ListOptions) (NoticePage, error) {
	items, err := s.store.ListNotices(ctx, opts)
	if err != nil {
		return NoticePage{}, err
	}
	total, err := s.store.CountNotices(ctx, opts.PublishedOnly)
	if err != nil {
		return NoticePage{}, err
	}
	return NoticePage{Items: mapSlice(items, noticeView), Total: total}, nil
}

func (s *Service) GetNotice(ctx context.Context, id string) (NoticeView, error) {
	item, err := s.store.GetNotice(ctx, id)
	if err != nil {
		return NoticeView{}, storeErr("Notice", err)
	}
	return noticeView(item), nil
}

// ViewNotice returns a published notice and counts the view.
func (s *Service) ViewNotice(ctx context.Context, id string) (NoticeView, error) {
	item, err := s.store.GetNotice(ctx, id)
	if err != nil {
		return NoticeView{}, storeErr("Notice", err)
	}
	if !item.Published {
		return NoticeView{}, notFoundError("Notice")
	}
	if err := s.store.IncrementNoticeViews(ctx, id); err != nil {
		return NoticeView{}, err
	}
	item.ViewCount++
	return noticeView(item), nil
}

func (in NoticeInput) apply(n *store.Notice) {
	n.Title, n.Body, n.Pinned, n.Published = in.Title, in.Body, in.Pinned, in.Published
}

func (s *Service) CreateNotice(ctx context.Context, actor Actor, in NoticeInput) (NoticeView, error) {
	if err := s.requirePublish(actor, in.Published); err != nil {
		return NoticeView{}, err
	}
	item := store.Notice{ID: util.NewID("ntc")}
	in.apply(&item)
	if fields := content.Notice(&item); fields != nil {
		return NoticeView{}, validationError(fields)
	}
	if item.Published {
		now := s.now().UTC()
		item.PublishedAt = &now
	}
	if err := s.store.InsertNotice(ctx, item); err != nil {
		return NoticeView{}, storeErr("Notice", err)
	}
	if saved, err := s.store.GetNotice(ctx, item.ID); err == nil {
		item = saved
	}
	view := noticeView(item)
	s.record(ctx, actor, audit.ActionCreate, "notice", item.ID, item.Title, view)
	s.indexRecord(noticeRecord(item), item.Published)
	return view, nil
}

func (s *Service) UpdateNotice(ctx context.Context, actor Actor, id string, in NoticeInput) (NoticeView, error) {
	before, err := s.store.GetNotice(ctx, id)
	if err != nil {
		return NoticeView{}, storeErr("Notice", err)
	}
	if err := s.requirePublish(actor, in.Published && !before.Published); err != nil {
		return NoticeView{}, err
	}
	item := before
	in.apply(&item)
	if fields := content.Notice(&item); fields != nil {
		return NoticeView{}, validationError(fields)
	}
	if item.Published && item.PublishedAt == nil {
		now := s.now().UTC()
		item.PublishedAt = &now
	}
	if err := s.store.UpdateNotice(ctx, item); err != nil {
		return NoticeView{}, storeErr("Notice", err)
	}
	if saved, err := s.store.GetNotice(ctx, id); err == nil {
		item = saved
	}
	view := noticeView(item)
	s.record(ctx, actor, audit.ActionUpdate, "notice", id, item.Title, audit.Change(noticeView(before), view))
	s.indexRecord(noticeRecord(item), item.Published)
	return view, nil
}

func (s *Service) DeleteNotice(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetNotice(ctx, id)
	if err != nil {
		return storeErr("Notice", err)
	}
	if err := s.store.DeleteNotice(ctx, id); err != nil {
		return storeErr("Notice", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "notice", id, before.Title, noticeView(before))
	s.removeRecord(search.ResultNotice, id)
	return nil
}

// Marquee items

func (s *Service) ListMarqueeItems(ctx context.Context, opts store.ListOptions) ([]MarqueeView, error) {
	items, err := s.store.ListMarqueeItems(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, marqueeView), nil
}

func (in MarqueeInput) apply(m *store.MarqueeItem) {
	m.Text, m.LinkURL, m.SortOrder, m.Active = in.Text, in.LinkURL, in.SortOrder, in.Active
}

func (s *Service) CreateMarqueeItem(ctx context.Context, actor Actor, in MarqueeInput) (MarqueeView, error) {
	item := store.MarqueeItem{ID: util.NewID("mrq")}
	in.apply(&item)
	if fields := content.MarqueeItem(&item); fields != nil {
		return MarqueeView{}, validationError(fields)
	}
	if err := s.store.InsertMarqueeItem(ctx, item); err != nil {
		return MarqueeView{}, storeErr("Marquee item", err)
	}
	if saved, err := s.store.GetMarqueeItem(ctx, item.ID); err == nil {
		item = saved
	}
	view := marqueeView(item)
	s.record(ctx, actor, audit.ActionCreate, "marquee_item", item.ID, util.Truncate(item.Text, 80), view)
	return view, nil
}

func (s *Service) UpdateMarqueeItem(ctx context.Context, actor Actor, id string, in MarqueeInput) (MarqueeView, error) {
	before, err := s.store.GetMarqueeItem(ctx, id)
	if err != nil {
		return MarqueeView{}, storeErr("Marquee item", err)
	}
	item := before
	in.apply(&item)
	if fields := content.MarqueeItem(&item); fields != nil {
		return MarqueeView{}, validationError(fields)
	}
	if err := s.store.UpdateMarqueeItem(ctx, item); err != nil {
		return MarqueeView{}, storeErr("Marquee item", err)
	}
	if saved, err := s.store.GetMarqueeItem(ctx, id); err == nil {
		item = saved
	}
	view := marqueeView(item)
	s.record(ctx, actor, audit.ActionUpdate, "marquee_item", id, util.Truncate(item.Text, 80), audit.Change(marqueeView(before), view))
	return view, nil
}

func (s *Service) DeleteMarqueeItem(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetMarqueeItem(ctx, id)
	if err != nil {
		return storeErr("Marquee item", err)
	}
	if err := s.store.DeleteMarqueeItem(ctx, id); err != nil {
		return storeErr("Marquee item", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "marquee_item", id, util.Truncate(before.Text, 80), marqueeView(before))
	return nil
}

func (s *Service) ReorderMarqueeItems(ctx context.Context, actor Actor, ids []string) error {
	return s.reorder(ctx, actor, "marquee_item", ids, s.store.ReorderMarqueeItems)
}

// Hero images

func (s *Service) ListHeroImages(ctx context.Context, opts store.ListOptions) ([]HeroImageView, error) {
	items, err := s.store.ListHeroImages(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, heroImageView), nil
}

func (in HeroImageInput) apply(h *store.HeroImage) {
	h.ImageURL, h.AltText, h.LinkURL, h.SortOrder, h.Active = in.ImageURL, in.AltText, in.LinkURL, in.SortOrder, in.Active
}

func (s *Service) CreateHeroImage(ctx context.Context, actor Actor, in HeroImageInput) (HeroImageView, error) {
	item := store.HeroImage{ID: util.NewID("hero")}
	in.apply(&item)
	if fields := content.HeroImage(&item); fields != nil {
		return HeroImageView{}, validationError(fields)
	}
	if err := s.store.InsertHeroImage(ctx, item); err != nil {
		return HeroImageView{}, storeErr("Hero image", err)
	}
	if saved, err := s.store.GetHeroImage(ctx, item.ID); err == nil {
		item = saved
	}
	view := heroImageView(item)
	s.record(ctx, actor, audit.ActionCreate, "hero_image", item.ID, item.ImageURL, view)
	return view, nil
}

func (s *Service) UpdateHeroImage(ctx context.Context, actor Actor, id string, in HeroImageInput) (HeroImageView, error) {
	before, err := s.store.GetHeroImage(ctx, id)
	if err != nil {
		return HeroImageView{}, storeErr("Hero image", err)
	}
	item := before
	in.apply(&item)
	if fields := content.HeroImage(&item); fields != nil {
		return HeroImageView{}, validationError(fields)
	}
	if err := s.store.UpdateHeroImage(ctx, item); err != nil {
		return HeroImageView{}, storeErr("Hero image", err)
	}
	if saved, err := s.store.GetHeroImage(ctx, id); err == nil {
		item = saved
	}
	view := heroImageView(item)
	s.record(ctx, actor, audit.ActionUpdate, "hero_image", id, item.ImageURL, audit.Change(heroImageView(before), view))
	return view, nil
}

func (s *Service) DeleteHeroImage(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetHeroImage(ctx, id)
	if err != nil {
		return storeErr("Hero image", err)
	}
	if err := s.store.DeleteHeroImage(ctx, id); err != nil {
		return storeErr("Hero image", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "hero_image", id, before.ImageURL, heroImageView(before))
	return nil
}

func (s *Service) ReorderHeroImages(ctx context.Context, actor Actor, ids []string) error {
	return s.reorder(ctx, actor, "hero_image", ids, s.store.ReorderHeroImages)
}

// Page headings and heroes

// Page is the heading and hero configured for one page key.
type Page struct {
	Key     string           `json:"key"`
	Heading *PageHeadingView `json:"heading"`
	Hero    *PageHeroView    `json:"hero"`
}

func (s *Service) GetPage(ctx context.Context, key string) (Page, error) {
	if !content.ValidPageKey(key) {
		return Page{}, notFoundError("Page")
	}
	page := Page{Key: key}
	heading, err := s.store.GetPageHeading(ctx, key)
	switch {
	case err == nil:
		v := pageHeadingView(heading)
		page.Heading = &v
	case !errors.Is(err, store.ErrNotFound):
		return Page{}, err
	}
	hero, err := s.store.GetPageHero(ctx, key)
	switch {
	case err == nil:
		v := pageHeroView(hero)
		page.Hero = &v
	case !errors.Is(err, store.ErrNotFound):
		return Page{}, err
	}
	return page, nil
}

func (s *Service) ListPages(ctx context.Context) ([]Page, error) {
	headings, err := s.store.ListPageHeadings(ctx)
	if err != nil {
		return nil, err
	}
	heroes, err := s.store.ListPageHeroes(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*Page, len(content.PageKeys))
	pages := make([]Page, len(content.PageKeys))
	for i, key := range content.PageKeys {
		pages[i] = Page{Key: key}
		byKey[key] = &pages[i]
	}
	for _, h := range headings {
		if p, ok := byKey[h.PageKey]; ok {
			v := pageHeadingView(h)
			p.Heading = &v
		}
	}
	for _, h := range heroes {
		if p, ok := byKey[h.PageKey]; ok {
			v := pageHeroView(h)
			p.Hero = &v
		}
	}
	return pages, nil
}

func (s *Service) SetPageHeading(ctx context.Context, actor Actor, key string, in PageHeadingInput) (PageHeadingView, error) {
	item := store.PageHeading{PageKey: key, Title: in.Title, Subtitle: in.Subtitle, UpdatedBy: actor.UserName}
	if fields := content.PageHeading(&item); fields != nil {
		return PageHeadingView{}, validationError(fields)
	}
	var before any
	if prev, err := s.store.GetPageHeading(ctx, item.PageKey); err == nil {
		before = pageHeadingView(prev)
	}
	if err := s.store.UpsertPageHeading(ctx, item); err != nil {
		return PageHeadingView{}, err
	}
	if saved, err := s.store.GetPageHeading(ctx, item.PageKey); err == nil {
		item = saved
	}
	view := pageHeadingView(item)
	s.record(ctx, actor, audit.ActionUpdate, "page_heading", item.PageKey, item.Title, audit.Change(before, view))
	return view, nil
}

func (s *Service) SetPageHero(ctx context.Context, actor Actor, key string, in PageHeroInput) (PageHeroView, error) {
	item := store.PageHero{
		PageKey: key, ImageURL: in.ImageURL, Title: in.Title, Subtitle: in.Subtitle,
		OverlayOpacity: defaultOverlayOpacity, UpdatedBy: actor.UserName,
	}
	if in.OverlayOpacity != nil {
		item.OverlayOpacity = *in.OverlayOpacity
	}
	if fields := content.PageHero(&item); fields != nil {
		return PageHeroView{}, validationError(fields)
	}
	var before any
	if prev, err := s.store.GetPageHero(ctx, item.PageKey); err == nil {
		before = pageHeroView(prev)
	}
	if err := s.store.UpsertPageHero(ctx, item); err != nil {
		return PageHeroView{}, err
	}
	if saved, err := s.store.GetPageHero(ctx, item.PageKey); err == nil {
		item = saved
	}
	view := pageHeroView(item)
	s.record(ctx, actor, audit.ActionUpdate, "page_hero", item.PageKey, item.ImageURL, audit.Change(before, view))
	return view, nil
}

// Equipment

func (s *Service) ListEquipment(ctx context.Context, opts store.ListOptions) ([]EquipmentView, error) {
	items, err := s.store.ListEquipment(ctx, opts)
	if err != nil {
		return nil, err
	}
	return mapSlice(items, equipmentView), nil
}

func (in EquipmentInput) apply(e *store.Equipment) {
	e.Name, e.Description, e.Manufacturer = in.Name, in.Description, in.Manufacturer
	e.ImageURL, e.SortOrder, e.Published = in.ImageURL, in.SortOrder, in.Published
}

func (s *Service) CreateEquipment(ctx context.Context, actor Actor, in EquipmentInput) (EquipmentView, error) {
	if err := s.requirePublish(actor, in.Published); err != nil {
		return EquipmentView{}, err
	}
	item := store.Equipment{ID: util.NewID("eqp")}
	in.apply(&item)
	if fields := content.Equipment(&item); fields != nil {
		return EquipmentView{}, validationError(fields)
	}
	if err := s.store.InsertEquipment(ctx, item); err != nil {
		return EquipmentView{}, storeErr("Equipment", err)
	}
	if saved, err := s.store.GetEquipment(ctx, item.ID); err == nil {
		item = saved
	}
	view := equipmentView(item)
	s.record(ctx, actor, audit.ActionCreate, "equipment", item.ID, item.Name, view)
	return view, nil
}

func (s *Service) UpdateEquipment(ctx context.Context, actor Actor, id string, in EquipmentInput) (EquipmentView, error) {
	before, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return EquipmentView{}, storeErr("Equipment", err)
	}
	if err := s.requirePublish(actor, in.Published && !before.Published); err != nil {
		return EquipmentView{}, err
	}
	item := before
	in.apply(&item)
	if fields := content.Equipment(&item); fields != nil {
		return EquipmentView{}, validationError(fields)
	}
	if err := s.store.UpdateEquipment(ctx, item); err != nil {
		return EquipmentView{}, storeErr("Equipment", err)
	}
	if saved, err := s.store.GetEquipment(ctx, id); err == nil {
		item = saved
	}
	view := equipmentView(item)
	s.record(ctx, actor, audit.ActionUpdate, "equipment", id, item.Name, audit.Change(equipmentView(before), view))
	return view, nil
}

func (s *Service) DeleteEquipment(ctx context.Context, actor Actor, id string) error {
	before, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return storeErr("Equipment", err)
	}
	if err := s.store.DeleteEquipment(ctx, id); err != nil {
		return storeErr("Equipment", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "equipment", id, before.Name, equipmentView(before))
	return nil
}

func (s *Service) ReorderEquipment(ctx context.Context, actor Actor, ids []string) error {
	return s.reorder(ctx, actor, "equipment", ids, s.store.ReorderEquipment)
}
