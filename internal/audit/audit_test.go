package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSink struct {
	entries []store.AuditEntry
	err     error
}

func (f *fakeSink) InsertAuditLog(_ context.Context, entry store.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestRecordPersists(t *testing.T) {
	sink := &fakeSink{}
	w := NewWriter(sink, nil)
	w.Record(context.Background(), store.AuditEntry{Action: string(ActionCreate), EntityType: "treatment", EntityID: "trt_1"})
	if len(sink.entries) != 1 || sink.entries[0].EntityID != "trt_1" {
		t.Fatalf("unexpected entries: %+v", sink.entries)
	}
}

func TestRecordSwallowsAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := NewWriter(&fakeSink{err: errors.New("db down")}, zap.New(core))

	w.Record(context.Background(), store.AuditEntry{Action: string(ActionDelete), EntityType: "faq", EntityID: "faq_1"})

	if logs.Len() != 1 {
		t.Fatalf("expected one error log, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "write audit log" || entry.ContextMap()["entity_id"] != "faq_1" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var w *Writer
	w.Record(context.Background(), store.AuditEntry{})
}

func TestChangePayload(t *testing.T) {
	raw := Change(map[string]string{"title": "old"}, map[string]string{"title": "new"})
	var decoded map[string]map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["before"]["title"] != "old" || decoded["after"]["title"] != "new" {
		t.Fatalf("unexpected payload %s", raw)
	}
	if string(Payload(nil)) != "{}" || string(Payload(make(chan int))) != "{}" {
		t.Fatal("unmarshalable payloads should fall back to {}")
	}
}

func TestValidAction(t *testing.T) {
	if !ValidAction("LOGIN_FAILED") || !ValidAction("MIGRATE") {
		t.Fatal("known actions should be valid")
	}
	if ValidAction("login") || ValidAction("") {
		t.Fatal("unknown actions should be invalid")
	}
}
