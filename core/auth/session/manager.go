package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kochabx/membership/core/auth/fingerprint"
	"github.com/kochabx/membership/core/auth/token"
	"github.com/kochabx/membership/log"
)

const defaultMaxSessions = 5

// Manager enforces the session lifecycle rules on top of a Store.
type Manager struct {
	store       Store
	maxSessions int
	refreshTTL  time.Duration
	now         func() time.Time
	onEvict     func(ownerID string)
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithMaxSessions sets the per-owner concurrent-session ceiling.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithRefreshTTL sets how long a session (refresh token) lives.
func WithRefreshTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTTL = d
		}
	}
}

// WithEvictionCallback registers a hook invoked whenever the ceiling
// forces an old session out, e.g. a metrics counter.
func WithEvictionCallback(fn func(ownerID string)) ManagerOption {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// withClock injects time for tests.
func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager with the default ceiling of 5
// concurrent sessions per owner.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		maxSessions: defaultMaxSessions,
		refreshTTL:  7 * 24 * time.Hour,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateSession records a login. An active session for the same
// (owner, fingerprint, address) is reused with rotated hashes instead of
// inserting a new row; otherwise the concurrent-session ceiling is
// enforced by revoking the oldest active session before inserting.
//
// Two logins crossing the ceiling simultaneously may transiently exceed
// it by one; the process takes no locks on the shared store.
func (m *Manager) CreateSession(ctx context.Context, ownerID, refreshToken, accessToken string, meta fingerprint.Meta) (*Session, error) {
	now := m.now()
	device := fingerprint.Device(meta.UserAgent)
	address := fingerprint.ClientIP(meta)

	// Dedup: a login burst from the same browser/device rotates the
	// existing row in place rather than accumulating sessions.
	existing, err := m.store.FindActive(ctx, ownerID, device, address, now)
	switch {
	case err == nil:
		existing.TokenHash = token.Hash(refreshToken)
		existing.AccessTokenHash = token.Hash(accessToken)
		existing.LastUsedAt = now
		existing.ExpiresAt = now.Add(m.refreshTTL)
		if err := m.store.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	count, err := m.store.CountActive(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}
	if count >= int64(m.maxSessions) {
		if err := m.evictOldest(ctx, ownerID, now); err != nil {
			return nil, err
		}
	}

	s := &Session{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		TokenHash:         token.Hash(refreshToken),
		AccessTokenHash:   token.Hash(accessToken),
		DeviceFingerprint: device,
		SourceAddress:     address,
		IssuedAt:          now,
		LastUsedAt:        now,
		ExpiresAt:         now.Add(m.refreshTTL),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) evictOldest(ctx context.Context, ownerID string, now time.Time) error {
	oldest, err := m.store.OldestActive(ctx, ownerID, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if err := m.store.Revoke(ctx, oldest.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if m.onEvict != nil {
		m.onEvict(ownerID)
	}
	log.Debug().Str("owner", ownerID).Str("session", oldest.ID).Msg("session ceiling reached, oldest session evicted")
	return nil
}

// ValidateRefreshToken resolves a presented refresh token to its active
// session and bumps lastUsedAt. ErrNotFound for unknown or expired
// tokens, ErrRevoked for revoked ones.
func (m *Manager) ValidateRefreshToken(ctx context.Context, tokenString string) (*Session, error) {
	now := m.now()

	s, err := m.store.FindByTokenHash(ctx, token.Hash(tokenString))
	if err != nil {
		return nil, err
	}
	if s.Revoked {
		return nil, ErrRevoked
	}
	if !s.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}

	s.LastUsedAt = now
	if err := m.store.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateAccessTokenHash records the most recently issued access token
// for the session so a later revocation blacklists the current token,
// not a stale one. Concurrent refreshes with the same refresh token
// race here: the loser observes ErrConflict and should retry.
func (m *Manager) UpdateAccessTokenHash(ctx context.Context, s *Session, newAccessToken string) error {
	next := token.Hash(newAccessToken)
	if err := m.store.SwapAccessTokenHash(ctx, s.ID, s.AccessTokenHash, next); err != nil {
		return err
	}
	s.AccessTokenHash = next
	return nil
}

// FindByRefreshToken resolves a refresh token to its session without
// bumping lastUsedAt or filtering state. Used by revocation flows that
// must also see revoked rows.
func (m *Manager) FindByRefreshToken(ctx context.Context, tokenString string) (*Session, error) {
	return m.store.FindByTokenHash(ctx, token.Hash(tokenString))
}

// RevokeSession marks a session revoked. Revoking an unknown or
// already-revoked session is a no-op success.
func (m *Manager) RevokeSession(ctx context.Context, id string) error {
	if err := m.store.Revoke(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// RevokeByRefreshToken revokes the session holding the given refresh
// token. Unknown tokens are a no-op success.
func (m *Manager) RevokeByRefreshToken(ctx context.Context, tokenString string) error {
	s, err := m.store.FindByTokenHash(ctx, token.Hash(tokenString))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return m.RevokeSession(ctx, s.ID)
}

// RevokeAll revokes every active session of the owner.
func (m *Manager) RevokeAll(ctx context.Context, ownerID string) (int64, error) {
	return m.store.RevokeAllForOwner(ctx, ownerID)
}

// ListActiveSessions returns the owner's active sessions, oldest first.
func (m *Manager) ListActiveSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	return m.store.ListActive(ctx, ownerID, m.now())
}

// ListNonRevokedSessions returns the owner's non-revoked sessions,
// expired ones included. Revocation sweeps walk this list: a session
// past its expiry may still have a live access token to blacklist.
func (m *Manager) ListNonRevokedSessions(ctx context.Context, ownerID string) ([]*Session, error) {
	return m.store.ListNonRevoked(ctx, ownerID)
}

// PurgeExpired deletes rows past their expiry.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.PurgeExpired(ctx, m.now())
}
