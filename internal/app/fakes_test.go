package app

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/blob"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/config"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/export"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/revisions"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

// fakeStore keeps rows in maps. The fn fields override single methods.
type fakeStore struct {
	mu sync.Mutex

	users      map[string]store.AdminUser
	sessions   map[string]store.SessionRecord
	resets     map[string]string
	treatments map[string]store.Treatment
	faqs       map[string]store.FAQ
	notices    map[string]store.Notice
	marquee    map[string]store.MarqueeItem
	heroes     map[string]store.HeroImage
	headings   map[string]store.PageHeading
	pageHeroes map[string]store.PageHero
	equipment  map[string]store.Equipment
	articles   map[string]store.Article
	images     map[string]store.Image
	audit      []store.AuditEntry

	pingFn           func(context.Context) error
	insertAuditLogFn func(context.Context, store.AuditEntry) error
	listAuditLogsFn  func(context.Context, store.AuditFilter) ([]store.AuditEntry, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]store.AdminUser{},
		sessions:   map[string]store.SessionRecord{},
		resets:     map[string]string{},
		treatments: map[string]store.Treatment{},
		faqs:       map[string]store.FAQ{},
		notices:    map[string]store.Notice{},
		marquee:    map[string]store.MarqueeItem{},
		heroes:     map[string]store.HeroImage{},
		headings:   map[string]store.PageHeading{},
		pageHeroes: map[string]store.PageHero{},
		equipment:  map[string]store.Equipment{},
		articles:   map[string]store.Article{},
		images:     map[string]store.Image{},
	}
}

func (f *fakeStore) auditEntries() []store.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.AuditEntry(nil), f.audit...)
}

// generic helpers over the maps

func getRow[T any](f *fakeStore, rows map[string]T, id string) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := rows[id]
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return row, nil
}

func putRow[T any](f *fakeStore, rows map[string]T, id string, row T, mustExist bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := rows[id]; mustExist && !ok {
		return store.ErrNotFound
	}
	rows[id] = row
	return nil
}

func deleteRow[T any](f *fakeStore, rows map[string]T, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func listRows[T any](f *fakeStore, rows map[string]T, keep func(T) bool, less func(a, b T) bool) []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func reorderRows[T any](f *fakeStore, rows map[string]T, ids []string, order func(T) int, set func(*T, int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	listed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := rows[id]; !ok {
			return store.ErrNotFound
		}
		listed[id] = true
	}
	var rest []string
	for id := range rows {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		a, b := order(rows[rest[i]]), order(rows[rest[j]])
		if a != b {
			return a < b
		}
		return rest[i] < rest[j]
	})
	for i, id := range append(append([]string(nil), ids...), rest...) {
		row := rows[id]
		set(&row, i)
		rows[id] = row
	}
	return nil
}

func stamp(created *time.Time, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// users and sessions

func (f *fakeStore) GetAdminUserByUsername(_ context.Context, username string) (store.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return store.AdminUser{}, store.ErrNotFound
}

func (f *fakeStore) GetAdminUserByEmail(_ context.Context, email string) (store.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.AdminUser{}, store.ErrNotFound
}

func (f *fakeStore) GetAdminUserByID(_ context.Context, id string) (store.AdminUser, error) {
	return getRow(f, f.users, id)
}

func (f *fakeStore) CreateAdminUser(_ context.Context, user store.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return store.ErrConflict
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) UpdateAdminPassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.users[userID] = u
	return nil
}

func (f *fakeStore) TouchAdminLogin(context.Context, string) error { return nil }

func (f *fakeStore) CreatePasswordReset(_ context.Context, userID, tokenHash string, _ time.Time) error {
	return putRow(f, f.resets, tokenHash, userID, false)
}

func (f *fakeStore) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	f.mu.Lock()
	userID, ok := f.resets[tokenHash]
	delete(f.resets, tokenHash)
	f.mu.Unlock()
	if !ok {
		return "", store.ErrNotFound
	}
	if err := f.UpdateAdminPassword(ctx, userID, passwordHash); err != nil {
		return "", err
	}
	return userID, nil
}

func (f *fakeStore) ListAdminUsers(context.Context) ([]store.AdminUser, error) {
	return listRows(f, f.users, nil, func(a, b store.AdminUser) bool { return a.Username < b.Username }), nil
}

func (f *fakeStore) CountAdminUsers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) DeleteAdminUser(_ context.Context, id string) error {
	return deleteRow(f, f.users, id)
}

func (f *fakeStore) SaveSession(_ context.Context, tokenHash string, record store.SessionRecord) error {
	return putRow(f, f.sessions, tokenHash, record, false)
}

func (f *fakeStore) LookupSession(_ context.Context, tokenHash string) (store.SessionRecord, error) {
	return getRow(f, f.sessions, tokenHash)
}

func (f *fakeStore) RevokeSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

// treatments

func (f *fakeStore) ListTreatments(_ context.Context, opts store.ListOptions) ([]store.Treatment, error) {
	return listRows(f, f.treatments, func(t store.Treatment) bool {
		return (!opts.PublishedOnly || t.Published) && (opts.Category == "" || t.Category == opts.Category)
	}, func(a, b store.Treatment) bool { return a.SortOrder < b.SortOrder }), nil
}

func (f *fakeStore) GetTreatment(_ context.Context, id string) (store.Treatment, error) {
	return getRow(f, f.treatments, id)
}

func (f *fakeStore) GetTreatmentBySlug(_ context.Context, slug string) (store.Treatment, error) {
	for _, t := range listRows(f, f.treatments, nil, func(a, b store.Treatment) bool { return a.ID < b.ID }) {
		if t.Slug == slug {
			return t, nil
		}
	}
	return store.Treatment{}, store.ErrNotFound
}

func (f *fakeStore) InsertTreatment(ctx context.Context, item store.Treatment) error {
	if _, err := f.GetTreatmentBySlug(ctx, item.Slug); err == nil {
		return store.ErrConflict
	}
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.treatments, item.ID, item, false)
}

func (f *fakeStore) UpdateTreatment(ctx context.Context, item store.Treatment) error {
	if other, err := f.GetTreatmentBySlug(ctx, item.Slug); err == nil && other.ID != item.ID {
		return store.ErrConflict
	}
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.treatments, item.ID, item, true)
}

func (f *fakeStore) DeleteTreatment(_ context.Context, id string) error {
	return deleteRow(f, f.treatments, id)
}

func (f *fakeStore) ReorderTreatments(_ context.Context, ids []string) error {
	return reorderRows(f, f.treatments, ids, func(t store.Treatment) int { return t.SortOrder }, func(t *store.Treatment, i int) { t.SortOrder = i })
}

// faqs

func (f *fakeStore) ListFAQs(_ context.Context, opts store.ListOptions) ([]store.FAQ, error) {
	return listRows(f, f.faqs, func(q store.FAQ) bool { return !opts.PublishedOnly || q.Published },
		func(a, b store.FAQ) bool { return a.SortOrder < b.SortOrder }), nil
}

func (f *fakeStore) GetFAQ(_ context.Context, id string) (store.FAQ, error) {
	return getRow(f, f.faqs, id)
}

func (f *fakeStore) InsertFAQ(_ context.Context, item store.FAQ) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.faqs, item.ID, item, false)
}

func (f *fakeStore) UpdateFAQ(_ context.Context, item store.FAQ) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.faqs, item.ID, item, true)
}

func (f *fakeStore) DeleteFAQ(_ context.Context, id string) error { return deleteRow(f, f.faqs, id) }

func (f *fakeStore) ReorderFAQs(_ context.Context, ids []string) error {
	return reorderRows(f, f.faqs, ids, func(q store.FAQ) int { return q.SortOrder }, func(q *store.FAQ, i int) { q.SortOrder = i })
}

// notices

func (f *fakeStore) ListNotices(_ context.Context, opts store.ListOptions) ([]store.Notice, error) {
	items := listRows(f, f.notices, func(n store.Notice) bool { return !opts.PublishedOnly || n.Published },
		func(a, b store.Notice) bool {
			if a.Pinned != b.Pinned {
				return a.Pinned
			}
			return a.CreatedAt.After(b.CreatedAt)
		})
	opts = opts.Normalize()
	if opts.Offset >= len(items) {
		return []store.Notice{}, nil
	}
	items = items[opts.Offset:]
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (f *fakeStore) CountNotices(_ context.Context, publishedOnly bool) (int, error) {
	return len(listRows(f, f.notices, func(n store.Notice) bool { return !publishedOnly || n.Published },
		func(a, b store.Notice) bool { return a.ID < b.ID })), nil
}

func (f *fakeStore) GetNotice(_ context.Context, id string) (store.Notice, error) {
	return getRow(f, f.notices, id)
}

func (f *fakeStore) InsertNotice(_ context.Context, item store.Notice) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.notices, item.ID, item, false)
}

func (f *fakeStore) UpdateNotice(_ context.Context, item store.Notice) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.notices, item.ID, item, true)
}

func (f *fakeStore) DeleteNotice(_ context.Context, id string) error {
	return deleteRow(f, f.notices, id)
}

func (f *fakeStore) IncrementNoticeViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notices[id]
	if !ok {
		return store.ErrNotFound
	}
	n.ViewCount++
	f.notices[id] = n
	return nil
}

// marquee and hero images

func (f *fakeStore) ListMarqueeItems(_ context.Context, opts store.ListOptions) ([]store.MarqueeItem, error) {
	return listRows(f, f.marquee, func(m store.MarqueeItem) bool { return !opts.PublishedOnly || m.Active },
		func(a, b store.MarqueeItem) bool { return a.SortOrder < b.SortOrder }), nil
}

func (f *fakeStore) GetMarqueeItem(_ context.Context, id string) (store.MarqueeItem, error) {
	return getRow(f, f.marquee, id)
}

func (f *fakeStore) InsertMarqueeItem(_ context.Context, item store.MarqueeItem) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.marquee, item.ID, item, false)
}

func (f *fakeStore) UpdateMarqueeItem(_ context.Context, item store.MarqueeItem) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.marquee, item.ID, item, true)
}

func (f *fakeStore) DeleteMarqueeItem(_ context.Context, id string) error {
	return deleteRow(f, f.marquee, id)
}

func (f *fakeStore) ReorderMarqueeItems(_ context.Context, ids []string) error {
	return reorderRows(f, f.marquee, ids, func(m store.MarqueeItem) int { return m.SortOrder }, func(m *store.MarqueeItem, i int) { m.SortOrder = i })
}

func (f *fakeStore) ListHeroImages(_ context.Context, opts store.ListOptions) ([]store.HeroImage, error) {
	return listRows(f, f.heroes, func(h store.HeroImage) bool { return !opts.PublishedOnly || h.Active },
		func(a, b store.HeroImage) bool { return a.SortOrder < b.SortOrder }), nil
}

func (f *fakeStore) GetHeroImage(_ context.Context, id string) (store.HeroImage, error) {
	return getRow(f, f.heroes, id)
}

func (f *fakeStore) InsertHeroImage(_ context.Context, item store.HeroImage) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.heroes, item.ID, item, false)
}

func (f *fakeStore) UpdateHeroImage(_ context.Context, item store.HeroImage) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.heroes, item.ID, item, true)
}

func (f *fakeStore) DeleteHeroImage(_ context.Context, id string) error {
	return deleteRow(f, f.heroes, id)
}

func (f *fakeStore) ReorderHeroImages(_ context.Context, ids []string) error {
	return reorderRows(f, f.heroes, ids, func(h store.HeroImage) int { return h.SortOrder }, func(h *store.HeroImage, i int) { h.SortOrder = i })
}

// pages

func (f *fakeStore) GetPageHeading(_ context.Context, key string) (store.PageHeading, error) {
	return getRow(f, f.headings, key)
}

func (f *fakeStore) ListPageHeadings(context.Context) ([]store.PageHeading, error) {
	return listRows(f, f.headings, nil, func(a, b store.PageHeading) bool { return a.PageKey < b.PageKey }), nil
}

func (f *fakeStore) UpsertPageHeading(_ context.Context, item store.PageHeading) error {
	item.UpdatedAt = time.Now().UTC()
	return putRow(f, f.headings, item.PageKey, item, false)
}

func (f *fakeStore) GetPageHero(_ context.Context, key string) (store.PageHero, error) {
	return getRow(f, f.pageHeroes, key)
}

func (f *fakeStore) ListPageHeroes(context.Context) ([]store.PageHero, error) {
	return listRows(f, f.pageHeroes, nil, func(a, b store.PageHero) bool { return a.PageKey < b.PageKey }), nil
}

func (f *fakeStore) UpsertPageHero(_ context.Context, item store.PageHero) error {
	item.UpdatedAt = time.Now().UTC()
	return putRow(f, f.pageHeroes, item.PageKey, item, false)
}

// equipment

func (f *fakeStore) ListEquipment(_ context.Context, opts store.ListOptions) ([]store.Equipment, error) {
	return listRows(f, f.equipment, func(e store.Equipment) bool { return !opts.PublishedOnly || e.Published },
		func(a, b store.Equipment) bool { return a.SortOrder < b.SortOrder }), nil
}

func (f *fakeStore) GetEquipment(_ context.Context, id string) (store.Equipment, error) {
	return getRow(f, f.equipment, id)
}

func (f *fakeStore) InsertEquipment(_ context.Context, item store.Equipment) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.equipment, item.ID, item, false)
}

func (f *fakeStore) UpdateEquipment(_ context.Context, item store.Equipment) error {
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.equipment, item.ID, item, true)
}

func (f *fakeStore) DeleteEquipment(_ context.Context, id string) error {
	return deleteRow(f, f.equipment, id)
}

func (f *fakeStore) ReorderEquipment(_ context.Context, ids []string) error {
	return reorderRows(f, f.equipment, ids, func(e store.Equipment) int { return e.SortOrder }, func(e *store.Equipment, i int) { e.SortOrder = i })
}

// articles

func (f *fakeStore) ListArticles(_ context.Context, opts store.ListOptions) ([]store.Article, error) {
	return listRows(f, f.articles, func(a store.Article) bool {
		return (!opts.PublishedOnly || a.Published) && (opts.Category == "" || a.Category == opts.Category)
	}, func(a, b store.Article) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (f *fakeStore) ListArticleCategories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, a := range listRows(f, f.articles, func(a store.Article) bool { return a.Published && a.Category != "" },
		func(a, b store.Article) bool { return a.Category < b.Category }) {
		if !seen[a.Category] {
			seen[a.Category] = true
			out = append(out, a.Category)
		}
	}
	return out, nil
}

func (f *fakeStore) GetArticle(_ context.Context, id string) (store.Article, error) {
	return getRow(f, f.articles, id)
}

func (f *fakeStore) GetArticleBySlug(_ context.Context, slug string) (store.Article, error) {
	for _, a := range listRows(f, f.articles, nil, func(a, b store.Article) bool { return a.ID < b.ID }) {
		if a.Slug == slug {
			return a, nil
		}
	}
	return store.Article{}, store.ErrNotFound
}

func (f *fakeStore) InsertArticle(ctx context.Context, item store.Article) error {
	if _, err := f.GetArticleBySlug(ctx, item.Slug); err == nil {
		return store.ErrConflict
	}
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.articles, item.ID, item, false)
}

func (f *fakeStore) UpdateArticle(ctx context.Context, item store.Article) error {
	if other, err := f.GetArticleBySlug(ctx, item.Slug); err == nil && other.ID != item.ID {
		return store.ErrConflict
	}
	stamp(&item.CreatedAt, &item.UpdatedAt)
	return putRow(f, f.articles, item.ID, item, true)
}

func (f *fakeStore) DeleteArticle(_ context.Context, id string) error {
	return deleteRow(f, f.articles, id)
}

// images

func (f *fakeStore) InsertImage(_ context.Context, item store.Image) error {
	item.CreatedAt = time.Now().UTC()
	return putRow(f, f.images, item.ID, item, false)
}

func (f *fakeStore) GetImage(_ context.Context, id string) (store.Image, error) {
	return getRow(f, f.images, id)
}

func (f *fakeStore) ListImages(context.Context, store.ListOptions) ([]store.Image, error) {
	return listRows(f, f.images, nil, func(a, b store.Image) bool { return a.ID < b.ID }), nil
}

func (f *fakeStore) DeleteImage(_ context.Context, id string) error {
	return deleteRow(f, f.images, id)
}

// audit

func (f *fakeStore) InsertAuditLog(ctx context.Context, entry store.AuditEntry) error {
	if f.insertAuditLogFn != nil {
		return f.insertAuditLogFn(ctx, entry)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.audit) + 1)
	entry.CreatedAt = time.Now().UTC()
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeStore) ListAuditLogs(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	if f.listAuditLogsFn != nil {
		return f.listAuditLogsFn(ctx, filter)
	}
	entries := f.auditEntries()
	out := make([]store.AuditEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// collaborators

type fakeSearch struct {
	mu      sync.Mutex
	indexed map[string]search.Record
	removed []string
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{indexed: map[string]search.Record{}}
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := []search.Result{}
	for _, rec := range f.indexed {
		if q.FilterType != "" && rec.Type != q.FilterType {
			continue
		}
		if bytes.Contains([]byte(rec.Title+" "+rec.Body), []byte(q.Text)) {
			results = append(results, search.Result{ID: rec.ID, Type: rec.Type, Title: rec.Title})
		}
	}
	return search.Response{Results: results, Total: len(results), Query: q.Text}
}

func (f *fakeSearch) Index(rec search.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[string(rec.Type)+":"+rec.ID] = rec
}

func (f *fakeSearch) Remove(typ search.ResultType, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, string(typ)+":"+id)
	f.removed = append(f.removed, string(typ)+":"+id)
}

func (f *fakeSearch) has(typ search.ResultType, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexed[string(typ)+":"+id]
	return ok
}

type fakeMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	pingErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeMedia) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeMedia) Get(_ context.Context, key string) (io.ReadCloser, blob.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, blob.ObjectInfo{}, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), blob.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: f.types[key], ETag: "etag-1"}, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeMedia) Ping(context.Context) error { return f.pingErr }

type fakeExporter struct {
	available bool
	exported  []string
}

func (f *fakeExporter) Available() bool { return f.available }

func (f *fakeExporter) ArticlePDF(_ context.Context, article store.Article) (*export.Result, error) {
	f.exported = append(f.exported, article.Slug)
	return &export.Result{Data: []byte("%PDF-1.4"), Filename: article.Slug + ".pdf", MimeType: "application/pdf"}, nil
}

type fakeMailer struct {
	configured bool
	sent       []string
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func (f *fakeMailer) SendPasswordResetEmail(to, _, resetURL string) error {
	f.sent = append(f.sent, to+" "+resetURL)
	return nil
}

// fixtures

func testConfig() config.Config {
	return config.Config{
		SessionSecret:      "test-secret",
		SessionTTL:         time.Hour,
		CookieName:         "clinic_admin_session",
		PublicBaseURL:      "http://clinic.test",
		MediaPublicBaseURL: "/media",
		MaxUploadBytes:     1 << 20,
	}
}

func newTestService(fs *fakeStore, deps Deps) *Service {
	deps.Store = fs
	return New(testConfig(), deps, zap.NewNop())
}

// newRevisionStore opens a git-backed revision store under a temp dir.
func newRevisionStore(t *testing.T) *revisions.Service {
	t.Helper()
	return revisions.New(t.TempDir())
}

// recordingRevisions wraps the git store and records removed repositories.
type recordingRevisions struct {
	*revisions.Service
	removed []string
}

func (r *recordingRevisions) Remove(articleID string) error {
	r.removed = append(r.removed, articleID)
	return r.Service.Remove(articleID)
}

// seedUser stores an account with the given role and opens a session for it.
func seedUser(t *testing.T, svc *Service, fs *fakeStore, id, role string) (store.AdminUser, Session) {
	t.Helper()
	hash, err := svc.auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := store.AdminUser{
		ID: id, Username: id, Email: id + "@clinic.test", DisplayName: "User " + id,
		PasswordHash: hash, Role: role, CreatedAt: time.Now().UTC(),
	}
	if err := fs.CreateAdminUser(context.Background(), user); err != nil {
		t.Fatalf("CreateAdminUser() error = %v", err)
	}
	session, err := svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}
	return user, session
}

func adminActor(session Session) Actor {
	return session.Actor(RequestMeta{IP: "127.0.0.1", UserAgent: "test", RequestID: "req-1"})
}
