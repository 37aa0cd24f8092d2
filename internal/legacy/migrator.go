package legacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

const (
	StatusMigrated        = "migrated"
	StatusDryRun          = "dry-run"
	StatusSkippedNonEmpty = "skipped-nonempty"
	StatusAlreadyMigrated = "already-migrated"
	StatusUnknownKey      = "unknown-key"
	StatusMissing         = "missing"
	StatusFailed          = "failed"
)

// Writer is the subset of the store a migration writes through.
type Writer interface {
	TableRowCount(ctx context.Context, table string) (int, error)
	ExistingSlugs(ctx context.Context, table string) ([]string, error)
	InsertTreatment(ctx context.Context, item store.Treatment) error
	InsertFAQ(ctx context.Context, item store.FAQ) error
	InsertNotice(ctx context.Context, item store.Notice) error
	InsertMarqueeItem(ctx context.Context, item store.MarqueeItem) error
	InsertHeroImage(ctx context.Context, item store.HeroImage) error
	UpsertPageHeading(ctx context.Context, item store.PageHeading) error
	UpsertPageHero(ctx context.Context, item store.PageHero) error
	InsertEquipment(ctx context.Context, item store.Equipment) error
	InsertArticle(ctx context.Context, item store.Article) error
	MarkLegacySettingMigrated(ctx context.Context, key string) error
}

type Options struct {
	DryRun bool
	Force  bool
	// Keys limits the run to these legacy keys; empty means every stored key.
	Keys []string
}

type Report struct {
	Key      string `json:"key"`
	Table    string `json:"table,omitempty"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type Migrator struct {
	source Source
	writer Writer
	inTx   func(ctx context.Context, fn func(Writer) error) error
	audit  *audit.Writer
	logger *zap.Logger
}

// NewMigrator migrates from source into the Postgres store, one transaction
// per key.
func NewMigrator(source Source, pg *store.PostgresStore, logger *zap.Logger) *Migrator {
	inTx := func(ctx context.Context, fn func(Writer) error) error {
		return pg.WithTx(ctx, func(tx *store.PostgresStore) error { return fn(tx) })
	}
	return newMigrator(source, pg, inTx, audit.NewWriter(pg, logger), logger)
}

func newMigrator(source Source, writer Writer, inTx func(context.Context, func(Writer) error) error, auditWriter *audit.Writer, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{source: source, writer: writer, inTx: inTx, audit: auditWriter, logger: logger.Named("legacy")}
}

// Run migrates every selected key and reports per key. A failing key does not
// stop the others; the returned error only covers reading the source.
func (m *Migrator) Run(ctx context.Context, opts Options) ([]Report, error) {
	settings, err := m.source.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read legacy settings: %w", err)
	}
	byKey := make(map[string]store.LegacySetting, len(settings))
	var order []string
	for _, s := range settings {
		byKey[s.Key] = s
		order = append(order, s.Key)
	}
	if len(opts.Keys) > 0 {
		order = opts.Keys
	}

	reports := make([]Report, 0, len(order))
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		setting, ok := byKey[key]
		var report Report
		if !ok {
			report = Report{Key: key, Table: Tables[key], Status: StatusMissing}
		} else {
			report = m.migrateKey(ctx, setting, opts)
		}
		m.logger.Info("legacy key processed",
			zap.String("key", report.Key),
			zap.String("status", report.Status),
			zap.Int("inserted", report.Inserted),
			zap.Int("skipped", report.Skipped))
		reports = append(reports, report)
	}
	return reports, nil
}

func (m *Migrator) migrateKey(ctx context.Context, setting store.LegacySetting, opts Options) Report {
	report := Report{Key: setting.Key, Table: Tables[setting.Key]}
	if report.Table == "" {
		report.Status = StatusUnknownKey
		return report
	}
	if setting.MigratedAt != nil && !opts.Force {
		report.Status = StatusAlreadyMigrated
		return report
	}

	batch, err := Reshape(setting.Key, setting.Value)
	if err != nil {
		return failed(report, err)
	}
	report.Skipped = batch.Skipped

	if !opts.Force {
		count, err := m.writer.TableRowCount(ctx, batch.Table)
		if err != nil {
			return failed(report, err)
		}
		if count > 0 {
			report.Status = StatusSkippedNonEmpty
			return report
		}
	} else if len(batch.Treatments) > 0 || len(batch.Articles) > 0 {
		taken, err := m.writer.ExistingSlugs(ctx, batch.Table)
		if err != nil {
			return failed(report, err)
		}
		batch.AvoidSlugs(taken)
	}
	if opts.DryRun {
		report.Inserted = batch.Len()
		report.Status = StatusDryRun
		return report
	}

	err = m.inTx(ctx, func(w Writer) error {
		if err := writeBatch(ctx, w, batch); err != nil {
			return err
		}
		return w.MarkLegacySettingMigrated(ctx, setting.Key)
	})
	if err != nil {
		return failed(report, err)
	}
	report.Inserted = batch.Len()
	report.Status = StatusMigrated

	m.audit.Record(ctx, store.AuditEntry{
		ActorName:  "clinicctl",
		Action:     string(audit.ActionMigrate),
		EntityType: batch.Table,
		EntityID:   setting.Key,
		Summary:    fmt.Sprintf("migrated %d rows from legacy key %s", report.Inserted, setting.Key),
		Payload:    audit.Payload(report),
	})
	return report
}

func failed(report Report, err error) Report {
	report.Status = StatusFailed
	report.Error = err.Error()
	if errors.Is(err, ErrUnknownKey) {
		report.Status = StatusUnknownKey
	}
	return report
}

func writeBatch(ctx context.Context, w Writer, b Batch) error {
	for _, item := range b.Treatments {
		if err := w.InsertTreatment(ctx, item); err != nil {
			return fmt.Errorf("treatment %q: %w", item.Slug, err)
		}
	}
	for _, item := range b.FAQs {
		if err := w.InsertFAQ(ctx, item); err != nil {
			return fmt.Errorf("faq %q: %w", item.Question, err)
		}
	}
	for _, item := range b.Notices {
		if err := w.InsertNotice(ctx, item); err != nil {
			return fmt.Errorf("notice %q: %w", item.Title, err)
		}
	}
	for _, item := range b.Marquee {
		if err := w.InsertMarqueeItem(ctx, item); err != nil {
			return fmt.Errorf("marquee item: %w", err)
		}
	}
	for _, item := range b.HeroImages {
		if err := w.InsertHeroImage(ctx, item); err != nil {
			return fmt.Errorf("hero image %q: %w", item.ImageURL, err)
		}
	}
	for _, item := range b.PageHeadings {
		if err := w.UpsertPageHeading(ctx, item); err != nil {
			return fmt.Errorf("page heading %q: %w", item.PageKey, err)
		}
	}
	for _, item := range b.PageHeroes {
		if err := w.UpsertPageHero(ctx, item); err != nil {
			return fmt.Errorf("page hero %q: %w", item.PageKey, err)
		}
	}
	for _, item := range b.Equipment {
		if err := w.InsertEquipment(ctx, item); err != nil {
			return fmt.Errorf("equipment %q: %w", item.Name, err)
		}
	}
	for _, item := range b.Articles {
		if err := w.InsertArticle(ctx, item); err != nil {
			return fmt.Errorf("article %q: %w", item.Slug, err)
		}
	}
	return nil
}
