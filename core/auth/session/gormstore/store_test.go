package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kochabx/membership/core/auth/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	// A second pooled connection would see an empty in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := New(db)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func seedSession(t *testing.T, st *Store, id, owner, tokenHash string, issued time.Time, revoked bool) *session.Session {
	t.Helper()
	s := &session.Session{
		ID:                id,
		OwnerID:           owner,
		TokenHash:         tokenHash,
		AccessTokenHash:   "access-" + id,
		DeviceFingerprint: "Chrome on macOS",
		SourceAddress:     "203.0.113.1",
		IssuedAt:          issued,
		LastUsedAt:        issued,
		ExpiresAt:         issued.Add(7 * 24 * time.Hour),
		Revoked:           revoked,
	}
	if err := st.Create(context.Background(), s); err != nil {
		t.Fatalf("seeding session %s: %v", id, err)
	}
	return s
}

func TestFindByTokenHash(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	got, err := st.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindByTokenHash failed: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("resolved wrong session: %s", got.ID)
	}

	if _, err := st.FindByTokenHash(ctx, "no-such-hash"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByTokenHash_SeesRevoked(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	seedSession(t, st, "s1", "owner-1", "hash-1", time.Now(), true)

	got, err := st.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("revoked rows must still resolve by hash: %v", err)
	}
	if !got.Revoked {
		t.Error("revoked flag lost")
	}
}

func TestFindActive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	got, err := st.FindActive(ctx, "owner-1", "Chrome on macOS", "203.0.113.1", now)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if got.ID != "s1" {
		t.Errorf("resolved wrong session: %s", got.ID)
	}

	// Different device, different address, or wrong owner: no match.
	if _, err := st.FindActive(ctx, "owner-1", "Firefox on Windows", "203.0.113.1", now); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("device mismatch should not resolve, got %v", err)
	}
	if _, err := st.FindActive(ctx, "owner-1", "Chrome on macOS", "203.0.113.2", now); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("address mismatch should not resolve, got %v", err)
	}
	if _, err := st.FindActive(ctx, "owner-2", "Chrome on macOS", "203.0.113.1", now); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("owner mismatch should not resolve, got %v", err)
	}
}

func TestFindActive_ExcludesRevokedAndExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, true)
	if _, err := st.FindActive(ctx, "owner-1", "Chrome on macOS", "203.0.113.1", now); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("revoked session resolved as active: %v", err)
	}

	// Expired: query with a now beyond the row's expiry.
	st2 := newTestStore(t)
	seedSession(t, st2, "s2", "owner-1", "hash-2", now, false)
	future := now.Add(8 * 24 * time.Hour)
	if _, err := st2.FindActive(ctx, "owner-1", "Chrome on macOS", "203.0.113.1", future); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expired session resolved as active: %v", err)
	}
}

func TestCountAndOldestActive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s-c", "owner-1", "hash-c", now.Add(-1*time.Hour), false)
	seedSession(t, st, "s-a", "owner-1", "hash-a", now.Add(-3*time.Hour), false)
	seedSession(t, st, "s-b", "owner-1", "hash-b", now.Add(-2*time.Hour), false)
	seedSession(t, st, "s-x", "owner-1", "hash-x", now.Add(-4*time.Hour), true) // revoked

	count, err := st.CountActive(ctx, "owner-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 active, got %d", count)
	}

	oldest, err := st.OldestActive(ctx, "owner-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if oldest.ID != "s-a" {
		t.Errorf("expected s-a oldest, got %s", oldest.ID)
	}
}

func TestOldestActive_TiebreakByID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	issued := time.Now().Truncate(time.Second)

	seedSession(t, st, "s-b", "owner-1", "hash-b", issued, false)
	seedSession(t, st, "s-a", "owner-1", "hash-a", issued, false)

	oldest, err := st.OldestActive(ctx, "owner-1", issued)
	if err != nil {
		t.Fatal(err)
	}
	if oldest.ID != "s-a" {
		t.Errorf("equal issuedAt must tiebreak by id, got %s", oldest.ID)
	}
}

func TestListActive_Ordering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s-b", "owner-1", "hash-b", now.Add(-1*time.Hour), false)
	seedSession(t, st, "s-a", "owner-1", "hash-a", now.Add(-2*time.Hour), false)
	seedSession(t, st, "other", "owner-2", "hash-o", now.Add(-3*time.Hour), false)

	rows, err := st.ListActive(ctx, "owner-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "s-a" || rows[1].ID != "s-b" {
		t.Errorf("wrong order: %s, %s", rows[0].ID, rows[1].ID)
	}
}

func TestSwapAccessTokenHash(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	seedSession(t, st, "s1", "owner-1", "hash-1", time.Now(), false)

	if err := st.SwapAccessTokenHash(ctx, "s1", "access-s1", "access-next"); err != nil {
		t.Fatalf("swap failed: %v", err)
	}

	// The stale expectation loses.
	if err := st.SwapAccessTokenHash(ctx, "s1", "access-s1", "access-other"); !errors.Is(err, session.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// Unknown session is not a conflict.
	if err := st.SwapAccessTokenHash(ctx, "no-such", "whatever", "next"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	if err := st.Revoke(ctx, "s1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	got, _ := st.FindByTokenHash(ctx, "hash-1")
	if !got.Revoked {
		t.Error("session not revoked")
	}

	if err := st.Revoke(ctx, "no-such"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeAllForOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)
	seedSession(t, st, "s2", "owner-1", "hash-2", now, false)
	seedSession(t, st, "s3", "owner-1", "hash-3", now, true) // already revoked
	seedSession(t, st, "s4", "owner-2", "hash-4", now, false)

	n, err := st.RevokeAllForOwner(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows revoked, got %d", n)
	}

	// owner-2 untouched.
	if count, _ := st.CountActive(ctx, "owner-2", now); count != 1 {
		t.Errorf("owner-2 sessions must survive, have %d active", count)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now.Add(-8*24*time.Hour), false) // expired
	seedSession(t, st, "s2", "owner-1", "hash-2", now, false)

	n, err := st.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}

	if _, err := st.FindByTokenHash(ctx, "hash-1"); !errors.Is(err, session.ErrNotFound) {
		t.Error("expired row survived purge")
	}
	if _, err := st.FindByTokenHash(ctx, "hash-2"); err != nil {
		t.Errorf("live row deleted: %v", err)
	}
}

func TestCreate_DuplicateTokenHash(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	dup := &session.Session{
		ID:        "s2",
		OwnerID:   "owner-1",
		TokenHash: "hash-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := st.Create(ctx, dup); err == nil {
		t.Error("duplicate token hash must violate the unique index")
	}
}

func TestUpdate_RotatesColumns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	row, err := st.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatal(err)
	}
	row.TokenHash = "hash-1b"
	row.AccessTokenHash = "access-1b"
	row.LastUsedAt = now.Add(time.Minute)
	row.ExpiresAt = now.Add(48 * time.Hour)
	if err := st.Update(ctx, row); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := st.FindByTokenHash(ctx, "hash-1b")
	if err != nil {
		t.Fatalf("rotated hash not persisted: %v", err)
	}
	if got.AccessTokenHash != "access-1b" {
		t.Errorf("access hash = %q", got.AccessTokenHash)
	}
	if !got.LastUsedAt.After(now) {
		t.Error("lastUsedAt not bumped")
	}
}

func TestUpdate_StaleRowCannotUnrevoke(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now, false)

	// Load the row, then revoke behind the loaded copy's back.
	stale, err := st.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Revoke(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	stale.LastUsedAt = now.Add(time.Minute)
	if err := st.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := st.FindByTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Revoked {
		t.Error("stale update flipped the session back to live")
	}
}

func TestListNonRevoked_IncludesExpired(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	now := time.Now()

	seedSession(t, st, "s1", "owner-1", "hash-1", now.Add(-time.Hour), false)
	expired := seedSession(t, st, "s2", "owner-1", "hash-2", now, false)
	expired.ExpiresAt = now.Add(-time.Minute)
	if err := st.Update(ctx, expired); err != nil {
		t.Fatal(err)
	}
	seedSession(t, st, "s3", "owner-1", "hash-3", now, true)
	seedSession(t, st, "s4", "owner-2", "hash-4", now, false)

	rows, err := st.ListNonRevoked(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListNonRevoked failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, have %d", len(rows))
	}
	if rows[0].ID != "s1" || rows[1].ID != "s2" {
		t.Errorf("order = %s, %s", rows[0].ID, rows[1].ID)
	}
}
