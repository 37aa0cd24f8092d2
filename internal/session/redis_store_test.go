package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	rs, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	return rs, s
}

func TestNewRedisStore(t *testing.T) {
	rs, _ := setupTestRedis(t)
	if err := rs.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("://nope"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(12 * time.Hour)

	err := rs.SaveSession(ctx, "hash-1", store.SessionRecord{UserID: "adm_1", Role: "editor", ExpiresAt: expiresAt})
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if !s.Exists("session:hash-1") {
		t.Fatal("expected key with session: prefix")
	}
	if ttl := s.TTL("session:hash-1"); ttl <= 0 || ttl > 12*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	rec, err := rs.LookupSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if rec.UserID != "adm_1" || rec.Role != "editor" || rec.CreatedAt.IsZero() {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	ctx := context.Background()

	err := rs.SaveSession(ctx, "short", store.SessionRecord{UserID: "adm_2", Role: "admin", ExpiresAt: time.Now().Add(time.Second)})
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, err := rs.LookupSession(ctx, "short"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestSaveRejectsExpiredRecord(t *testing.T) {
	rs, _ := setupTestRedis(t)
	err := rs.SaveSession(context.Background(), "old", store.SessionRecord{UserID: "adm_3", ExpiresAt: time.Now().Add(-time.Minute)})
	if err == nil {
		t.Fatal("expected error when saving an expired session")
	}
}

func TestRevokeSession(t *testing.T) {
	rs, _ := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	for _, h := range []string{"token-1", "token-2"} {
		if err := rs.SaveSession(ctx, h, store.SessionRecord{UserID: "u-" + h, Role: "admin", ExpiresAt: expiresAt}); err != nil {
			t.Fatalf("SaveSession %s failed: %v", h, err)
		}
	}

	if err := rs.RevokeSession(ctx, "token-1"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := rs.LookupSession(ctx, "token-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected revoked token to be gone, got %v", err)
	}
	rec, err := rs.LookupSession(ctx, "token-2")
	if err != nil || rec.UserID != "u-token-2" {
		t.Fatalf("token-2 should survive: %+v %v", rec, err)
	}

	if err := rs.RevokeSession(ctx, "never-existed"); err != nil {
		t.Errorf("revoking a missing session should not fail: %v", err)
	}
}
