package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

type fakeSource struct {
	settings []store.LegacySetting
	err      error
}

func (f fakeSource) Settings(context.Context) ([]store.LegacySetting, error) {
	return f.settings, f.err
}

type fakeWriter struct {
	counts     map[string]int
	inserted   map[string]int
	marked     []string
	failOn     string
	committed  int
	rolledBack int
	audits     []store.AuditEntry
	slugs      map[string][]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{counts: map[string]int{}, inserted: map[string]int{}}
}

func (f *fakeWriter) add(table string) error {
	if f.failOn == table {
		return errors.New("insert failed")
	}
	f.inserted[table]++
	return nil
}

func (f *fakeWriter) TableRowCount(_ context.Context, table string) (int, error) {
	return f.counts[table], nil
}
func (f *fakeWriter) ExistingSlugs(_ context.Context, table string) ([]string, error) {
	return f.slugs[table], nil
}
func (f *fakeWriter) InsertTreatment(_ context.Context, item store.Treatment) error {
	if err := f.add("treatments"); err != nil {
		return err
	}
	return f.addSlug("treatments", item.Slug)
}
func (f *fakeWriter) InsertFAQ(context.Context, store.FAQ) error             { return f.add("faqs") }
func (f *fakeWriter) InsertNotice(context.Context, store.Notice) error       { return f.add("notices") }
func (f *fakeWriter) InsertMarqueeItem(context.Context, store.MarqueeItem) error {
	return f.add("marquee_items")
}
func (f *fakeWriter) InsertHeroImage(context.Context, store.HeroImage) error { return f.add("hero_images") }
func (f *fakeWriter) UpsertPageHeading(context.Context, store.PageHeading) error {
	return f.add("page_headings")
}
func (f *fakeWriter) UpsertPageHero(context.Context, store.PageHero) error { return f.add("page_heroes") }
func (f *fakeWriter) InsertEquipment(context.Context, store.Equipment) error {
	return f.add("equipment")
}
func (f *fakeWriter) InsertArticle(_ context.Context, item store.Article) error {
	if err := f.add("health_info_articles"); err != nil {
		return err
	}
	return f.addSlug("health_info_articles", item.Slug)
}

// addSlug enforces the unique slug constraint of the real tables.
func (f *fakeWriter) addSlug(table, slug string) error {
	for _, existing := range f.slugs[table] {
		if existing == slug {
			return store.ErrConflict
		}
	}
	if f.slugs == nil {
		f.slugs = map[string][]string{}
	}
	f.slugs[table] = append(f.slugs[table], slug)
	return nil
}
func (f *fakeWriter) MarkLegacySettingMigrated(_ context.Context, key string) error {
	f.marked = append(f.marked, key)
	return nil
}
func (f *fakeWriter) InsertAuditLog(_ context.Context, entry store.AuditEntry) error {
	f.audits = append(f.audits, entry)
	return nil
}

// inTx stages writes on a copy and only merges them on success.
func (f *fakeWriter) inTx(ctx context.Context, fn func(Writer) error) error {
	staged := &fakeWriter{counts: f.counts, inserted: map[string]int{}, failOn: f.failOn, slugs: map[string][]string{}}
	for table, slugs := range f.slugs {
		staged.slugs[table] = append([]string(nil), slugs...)
	}
	if err := fn(staged); err != nil {
		f.rolledBack++
		return err
	}
	for table, n := range staged.inserted {
		f.inserted[table] += n
	}
	f.marked = append(f.marked, staged.marked...)
	f.slugs = staged.slugs
	f.committed++
	return nil
}

func newTestMigrator(src Source, w *fakeWriter) *Migrator {
	return newMigrator(src, w, w.inTx, audit.NewWriter(w, nil), nil)
}

func setting(key, value string) store.LegacySetting {
	return store.LegacySetting{Key: key, Value: json.RawMessage(value)}
}

func TestMigratorRunInsertsAndAudits(t *testing.T) {
	w := newFakeWriter()
	src := fakeSource{settings: []store.LegacySetting{
		setting("faqs", `[{"question": "Hours?", "answer": "9 to 6"}, {"question": "", "answer": "x"}]`),
		setting("marquee", `"Open Saturdays"`),
	}}
	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if r := reports[0]; r.Status != StatusMigrated || r.Inserted != 1 || r.Skipped != 1 || r.Table != "faqs" {
		t.Fatalf("unexpected faq report: %+v", r)
	}
	if w.inserted["faqs"] != 1 || w.inserted["marquee_items"] != 1 {
		t.Fatalf("unexpected inserts: %v", w.inserted)
	}
	if len(w.marked) != 2 || w.committed != 2 {
		t.Fatalf("expected both keys marked in committed transactions, got marked=%v committed=%d", w.marked, w.committed)
	}
	if len(w.audits) != 2 || w.audits[0].Action != string(audit.ActionMigrate) || w.audits[0].EntityID != "faqs" {
		t.Fatalf("unexpected audits: %+v", w.audits)
	}
}

func TestMigratorSkipsNonEmptyTablesUnlessForced(t *testing.T) {
	w := newFakeWriter()
	w.counts["faqs"] = 3
	src := fakeSource{settings: []store.LegacySetting{setting("faqs", `[{"question": "Q", "answer": "A"}]`)}}

	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reports[0].Status != StatusSkippedNonEmpty || w.inserted["faqs"] != 0 {
		t.Fatalf("expected skip, got %+v inserts=%v", reports[0], w.inserted)
	}

	reports, err = newTestMigrator(src, w).Run(context.Background(), Options{Force: true})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if reports[0].Status != StatusMigrated || w.inserted["faqs"] != 1 {
		t.Fatalf("expected forced insert, got %+v inserts=%v", reports[0], w.inserted)
	}
}

func TestMigratorForceAvoidsExistingSlugs(t *testing.T) {
	w := newFakeWriter()
	w.counts["treatments"] = 2
	w.slugs = map[string][]string{"treatments": {"iv-therapy", "iv-therapy-2"}}
	src := fakeSource{settings: []store.LegacySetting{
		setting("treatments", `[{"title": "IV Therapy"}, {"title": "Detox"}]`),
	}}
	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{Force: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reports[0].Status != StatusMigrated || w.inserted["treatments"] != 2 {
		t.Fatalf("expected forced insert without conflicts, got %+v", reports[0])
	}
	want := []string{"iv-therapy", "iv-therapy-2", "iv-therapy-3", "detox"}
	got := w.slugs["treatments"]
	if len(got) != len(want) {
		t.Fatalf("slugs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slugs = %v, want %v", got, want)
		}
	}
}

func TestMigratorDryRunWritesNothing(t *testing.T) {
	w := newFakeWriter()
	src := fakeSource{settings: []store.LegacySetting{setting("equipment", `[{"name": "Ultrasound"}, {"name": "X-ray"}]`)}}
	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reports[0].Status != StatusDryRun || reports[0].Inserted != 2 {
		t.Fatalf("unexpected report: %+v", reports[0])
	}
	if w.committed != 0 || len(w.marked) != 0 || len(w.audits) != 0 || len(w.inserted) != 0 {
		t.Fatal("dry run should not write")
	}
}

func TestMigratorStatusesForSpecialKeys(t *testing.T) {
	migrated := time.Now()
	w := newFakeWriter()
	src := fakeSource{settings: []store.LegacySetting{
		{Key: "faqs", Value: json.RawMessage(`[]`), MigratedAt: &migrated},
		setting("popupBanner", `{}`),
		setting("notices", `{"broken": true}`),
	}}
	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{Keys: []string{"faqs", "popupBanner", "notices", "equipment"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{StatusAlreadyMigrated, StatusUnknownKey, StatusFailed, StatusMissing}
	for i, status := range want {
		if reports[i].Status != status {
			t.Fatalf("report %d (%s): status %q, want %q", i, reports[i].Key, reports[i].Status, status)
		}
	}
	if reports[2].Error == "" {
		t.Fatal("failed report should carry the error")
	}
}

func TestMigratorRollsBackFailedKey(t *testing.T) {
	w := newFakeWriter()
	w.failOn = "treatments"
	src := fakeSource{settings: []store.LegacySetting{
		setting("treatments", `[{"title": "A"}, {"title": "B"}]`),
		setting("faqs", `[{"question": "Q", "answer": "A"}]`),
	}}
	reports, err := newTestMigrator(src, w).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reports[0].Status != StatusFailed || w.rolledBack != 1 {
		t.Fatalf("expected treatments to fail and roll back, got %+v", reports[0])
	}
	if reports[1].Status != StatusMigrated {
		t.Fatalf("later keys should still migrate, got %+v", reports[1])
	}
	if len(w.marked) != 1 || w.marked[0] != "faqs" || len(w.audits) != 1 {
		t.Fatalf("only faqs should be marked and audited, got marked=%v audits=%d", w.marked, len(w.audits))
	}
}

func TestMigratorSourceError(t *testing.T) {
	_, err := newTestMigrator(fakeSource{err: errors.New("boom")}, newFakeWriter()).Run(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected source error")
	}
}
