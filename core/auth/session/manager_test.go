package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kochabx/membership/core/auth/fingerprint"
	"github.com/kochabx/membership/core/auth/token"
)

// memStore is a Store fake backed by a map, good enough to drive the
// manager's lifecycle rules.
type memStore struct {
	mu   sync.Mutex
	rows map[string]*Session
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*Session)}
}

func (st *memStore) Create(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := *s
	st.rows[s.ID] = &cp
	return nil
}

func (st *memStore) FindByTokenHash(_ context.Context, hash string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.rows {
		if s.TokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (st *memStore) FindActive(_ context.Context, ownerID, fp, address string, now time.Time) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.rows {
		if s.OwnerID == ownerID && s.DeviceFingerprint == fp && s.SourceAddress == address && s.Active(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (st *memStore) active(ownerID string, now time.Time) []*Session {
	var out []*Session
	for _, s := range st.rows {
		if s.OwnerID == ownerID && s.Active(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out
}

func (st *memStore) CountActive(_ context.Context, ownerID string, now time.Time) (int64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return int64(len(st.active(ownerID, now))), nil
}

func (st *memStore) OldestActive(_ context.Context, ownerID string, now time.Time) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	active := st.active(ownerID, now)
	if len(active) == 0 {
		return nil, ErrNotFound
	}
	cp := *active[0]
	return &cp, nil
}

func (st *memStore) ListActive(_ context.Context, ownerID string, now time.Time) ([]*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []*Session
	for _, s := range st.active(ownerID, now) {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (st *memStore) ListNonRevoked(_ context.Context, ownerID string) ([]*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []*Session
	for _, s := range st.rows {
		if s.OwnerID == ownerID && !s.Revoked {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}

// Update mirrors the gorm store: only the rotating columns are written,
// the revoked flag keeps whatever the stored row has.
func (st *memStore) Update(_ context.Context, s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	row, ok := st.rows[s.ID]
	if !ok {
		return ErrNotFound
	}
	row.TokenHash = s.TokenHash
	row.AccessTokenHash = s.AccessTokenHash
	row.LastUsedAt = s.LastUsedAt
	row.ExpiresAt = s.ExpiresAt
	return nil
}

func (st *memStore) SwapAccessTokenHash(_ context.Context, id, expected, next string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.rows[id]
	if !ok {
		return ErrNotFound
	}
	if s.AccessTokenHash != expected {
		return ErrConflict
	}
	s.AccessTokenHash = next
	return nil
}

func (st *memStore) Revoke(_ context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.rows[id]
	if !ok {
		return ErrNotFound
	}
	s.Revoked = true
	return nil
}

func (st *memStore) RevokeAllForOwner(_ context.Context, ownerID string) (int64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int64
	for _, s := range st.rows {
		if s.OwnerID == ownerID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

func (st *memStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int64
	for id, s := range st.rows {
		if !s.ExpiresAt.After(now) {
			delete(st.rows, id)
			n++
		}
	}
	return n, nil
}

var _ Store = (*memStore)(nil)

const testUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func metaFrom(ip string) fingerprint.Meta {
	return fingerprint.Meta{UserAgent: testUA, RemoteAddr: ip + ":443"}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(opts ...ManagerOption) (*Manager, *memStore, *testClock) {
	st := newMemStore()
	clock := &testClock{now: time.Now()}
	opts = append(opts, withClock(clock.Now))
	return NewManager(st, opts...), st, clock
}

func TestCreateSession_NewLogin(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager()

	s, err := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if s.TokenHash != token.Hash("refresh-1") {
		t.Error("refresh token stored unhashed or wrong")
	}
	if s.AccessTokenHash != token.Hash("access-1") {
		t.Error("access token hash wrong")
	}
	if s.DeviceFingerprint != "Chrome on macOS" {
		t.Errorf("fingerprint = %q", s.DeviceFingerprint)
	}
	if s.SourceAddress != "203.0.113.1" {
		t.Errorf("source address = %q", s.SourceAddress)
	}
	if !s.ExpiresAt.Equal(clock.Now().Add(7 * 24 * time.Hour)) {
		t.Errorf("expiry = %v", s.ExpiresAt)
	}
}

func TestCreateSession_DedupRotatesInPlace(t *testing.T) {
	ctx := context.Background()
	m, st, clock := newTestManager()

	first, err := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Minute)

	second, err := m.CreateSession(ctx, "owner-1", "refresh-2", "access-2", metaFrom("203.0.113.1"))
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Error("repeat login from same device must reuse the session row")
	}
	if second.TokenHash != token.Hash("refresh-2") {
		t.Error("refresh hash not rotated")
	}
	if second.AccessTokenHash != token.Hash("access-2") {
		t.Error("access hash not rotated")
	}
	if count, _ := st.CountActive(ctx, "owner-1", clock.Now()); count != 1 {
		t.Errorf("expected 1 session, have %d", count)
	}

	// The old refresh token no longer resolves.
	if _, err := m.ValidateRefreshToken(ctx, "refresh-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("superseded refresh token: expected ErrNotFound, got %v", err)
	}
}

func TestCreateSession_CeilingEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m, st, clock := newTestManager(WithMaxSessions(3))

	ips := []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"}
	var firstID string
	for i, ip := range ips {
		s, err := m.CreateSession(ctx, "owner-1", "refresh-"+ip, "access-"+ip, metaFrom(ip))
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			firstID = s.ID
		}
		clock.Advance(time.Minute)
	}

	// The ceiling is reached; a fourth device evicts the oldest.
	if _, err := m.CreateSession(ctx, "owner-1", "refresh-4", "access-4", metaFrom("203.0.113.4")); err != nil {
		t.Fatal(err)
	}

	count, _ := st.CountActive(ctx, "owner-1", clock.Now())
	if count != 3 {
		t.Errorf("expected ceiling of 3 active sessions, have %d", count)
	}

	active, _ := m.ListActiveSessions(ctx, "owner-1")
	for _, s := range active {
		if s.ID == firstID {
			t.Error("oldest session should have been evicted")
		}
	}
}

func TestCreateSession_EvictionCallback(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	clock := &testClock{now: time.Now()}

	var evictions int
	m := NewManager(st,
		WithMaxSessions(2),
		WithEvictionCallback(func(owner string) {
			if owner != "owner-1" {
				t.Errorf("callback owner = %q", owner)
			}
			evictions++
		}),
		withClock(clock.Now),
	)

	for i, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		if _, err := m.CreateSession(ctx, "owner-1", "r"+string(rune('1'+i)), "a", metaFrom(ip)); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Minute)
	}
	if evictions != 0 {
		t.Fatalf("evicted below the ceiling: %d", evictions)
	}

	if _, err := m.CreateSession(ctx, "owner-1", "r3", "a", metaFrom("203.0.113.3")); err != nil {
		t.Fatal(err)
	}
	if evictions != 1 {
		t.Errorf("expected 1 eviction, have %d", evictions)
	}

	// Dedup of an existing device rotates in place, no eviction.
	if _, err := m.CreateSession(ctx, "owner-1", "r4", "a", metaFrom("203.0.113.3")); err != nil {
		t.Fatal(err)
	}
	if evictions != 1 {
		t.Errorf("dedup must not evict, have %d evictions", evictions)
	}
}

func TestCreateSession_CeilingIsPerOwner(t *testing.T) {
	ctx := context.Background()
	m, st, clock := newTestManager(WithMaxSessions(1))

	if _, err := m.CreateSession(ctx, "owner-1", "r1", "a1", metaFrom("203.0.113.1")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateSession(ctx, "owner-2", "r2", "a2", metaFrom("203.0.113.1")); err != nil {
		t.Fatal(err)
	}

	for _, owner := range []string{"owner-1", "owner-2"} {
		if count, _ := st.CountActive(ctx, owner, clock.Now()); count != 1 {
			t.Errorf("%s: expected 1 active session, have %d", owner, count)
		}
	}
}

func TestValidateRefreshToken(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager()

	s, err := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)

	got, err := m.ValidateRefreshToken(ctx, "refresh-1")
	if err != nil {
		t.Fatalf("ValidateRefreshToken failed: %v", err)
	}
	if got.ID != s.ID {
		t.Error("resolved wrong session")
	}
	if !got.LastUsedAt.Equal(clock.Now()) {
		t.Error("lastUsedAt not bumped")
	}
}

func TestValidateRefreshToken_Unknown(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()

	if _, err := m.ValidateRefreshToken(ctx, "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateRefreshToken_Revoked(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()

	s, _ := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))
	if err := m.RevokeSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateRefreshToken(ctx, "refresh-1"); !errors.Is(err, ErrRevoked) {
		t.Errorf("expected ErrRevoked, got %v", err)
	}
}

func TestValidateRefreshToken_Expired(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(WithRefreshTTL(time.Hour))

	if _, err := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1")); err != nil {
		t.Fatal(err)
	}

	clock.Advance(61 * time.Minute)

	if _, err := m.ValidateRefreshToken(ctx, "refresh-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestUpdateAccessTokenHash_ConcurrentLoser(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()

	s, _ := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))

	// Two goroutines loaded the same session state.
	stale := *s

	if err := m.UpdateAccessTokenHash(ctx, s, "access-2"); err != nil {
		t.Fatalf("winner failed: %v", err)
	}
	if err := m.UpdateAccessTokenHash(ctx, &stale, "access-3"); !errors.Is(err, ErrConflict) {
		t.Errorf("loser: expected ErrConflict, got %v", err)
	}
}

func TestRevokeSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()

	s, _ := m.CreateSession(ctx, "owner-1", "refresh-1", "access-1", metaFrom("203.0.113.1"))

	if err := m.RevokeSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.RevokeSession(ctx, s.ID); err != nil {
		t.Errorf("second revoke must be a no-op success, got %v", err)
	}
	if err := m.RevokeSession(ctx, "no-such-id"); err != nil {
		t.Errorf("unknown id must be a no-op success, got %v", err)
	}
}

func TestRevokeByRefreshToken_UnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager()

	if err := m.RevokeByRefreshToken(ctx, "never-issued"); err != nil {
		t.Errorf("expected no-op success, got %v", err)
	}
}

func TestRevokeAll(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		if _, err := m.CreateSession(ctx, "owner-1", "r-"+ip, "a-"+ip, metaFrom(ip)); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Second)
	}

	n, err := m.RevokeAll(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 revoked, got %d", n)
	}

	active, _ := m.ListActiveSessions(ctx, "owner-1")
	if len(active) != 0 {
		t.Errorf("expected no active sessions, have %d", len(active))
	}

	// Every refresh token is now dead.
	if _, err := m.ValidateRefreshToken(ctx, "r-203.0.113.1"); err == nil {
		t.Error("refresh token survived RevokeAll")
	}
}

func TestListActiveSessions_OrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager()

	for _, ip := range []string{"203.0.113.3", "203.0.113.1", "203.0.113.2"} {
		if _, err := m.CreateSession(ctx, "owner-1", "r-"+ip, "a-"+ip, metaFrom(ip)); err != nil {
			t.Fatal(err)
		}
		clock.Advance(time.Minute)
	}

	active, err := m.ListActiveSessions(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 sessions, have %d", len(active))
	}
	for i := 1; i < len(active); i++ {
		if active[i].IssuedAt.Before(active[i-1].IssuedAt) {
			t.Error("sessions not ordered oldest first")
		}
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	m, st, clock := newTestManager(WithRefreshTTL(time.Hour))

	if _, err := m.CreateSession(ctx, "owner-1", "r1", "a1", metaFrom("203.0.113.1")); err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Minute)
	if _, err := m.CreateSession(ctx, "owner-1", "r2", "a2", metaFrom("203.0.113.2")); err != nil {
		t.Fatal(err)
	}

	clock.Advance(31 * time.Minute) // first is past its 1h window

	purged, err := m.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}
	if len(st.rows) != 1 {
		t.Errorf("expected 1 remaining row, have %d", len(st.rows))
	}
}
