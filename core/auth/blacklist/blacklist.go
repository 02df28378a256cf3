// Package blacklist is the TTL-bounded revocation set consulted before
// any trust is extended to an access token. It is deliberately
// independent of the token codec: the codec stays stateless and pure,
// revocation is layered on top.
package blacklist

import (
	"context"
	"errors"
	"time"

	"github.com/kochabx/membership/core/auth/token"
)

// ErrUnavailable marks a cache that could not be reached.
var ErrUnavailable = errors.New("blacklist: cache unavailable")

// Cache is the underlying TTL-expiring set of revoked token hashes.
// Entries disappear on their own once their TTL elapses, bounding
// memory use to the population of still-live tokens.
type Cache interface {
	// Add stores a hash with the given TTL. A non-positive TTL is a
	// no-op: an already-expired token needs no protection.
	Add(ctx context.Context, hash string, ttl time.Duration) error

	// Contains reports whether the hash is present.
	Contains(ctx context.Context, hash string) (bool, error)
}

// ExpiryFunc resolves a token string to its expiry instant.
type ExpiryFunc func(tokenString string) (time.Time, error)

// Revoker layers token semantics over a Cache: hashing, TTL derivation
// from the token's own expiry, and the default-TTL fallback for tokens
// that cannot be parsed.
type Revoker struct {
	cache      Cache
	expiresAt  ExpiryFunc
	defaultTTL time.Duration
	now        func() time.Time
}

// RevokerOption configures the Revoker.
type RevokerOption func(*Revoker)

// WithDefaultTTL sets the fallback entry lifetime used when a token's
// expiry cannot be determined.
func WithDefaultTTL(d time.Duration) RevokerOption {
	return func(r *Revoker) {
		if d > 0 {
			r.defaultTTL = d
		}
	}
}

// withClock injects time for tests.
func withClock(now func() time.Time) RevokerOption {
	return func(r *Revoker) {
		r.now = now
	}
}

// NewRevoker creates a Revoker. expiresAt is typically Codec.ExpiresAt.
func NewRevoker(cache Cache, expiresAt ExpiryFunc, opts ...RevokerOption) *Revoker {
	r := &Revoker{
		cache:      cache,
		expiresAt:  expiresAt,
		defaultTTL: time.Hour,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Blacklist revokes an access token for the remainder of its natural
// lifetime. An already-expired token is a no-op. An unparsable token is
// still blacklisted, for the bounded default window: failing open
// toward safety, not availability.
func (r *Revoker) Blacklist(ctx context.Context, tokenString string) error {
	ttl := r.defaultTTL
	if exp, err := r.expiresAt(tokenString); err == nil {
		ttl = exp.Sub(r.now())
		if ttl <= 0 {
			return nil
		}
	}
	return r.cache.Add(ctx, token.Hash(tokenString), ttl)
}

// BlacklistByHash revokes by pre-computed hash with the default TTL.
// Used by flows that only ever stored the hash.
func (r *Revoker) BlacklistByHash(ctx context.Context, hash string) error {
	if hash == "" {
		return nil
	}
	return r.cache.Add(ctx, hash, r.defaultTTL)
}

// IsBlacklisted reports whether the exact token string was revoked.
// A cache error is returned as-is: the caller must not treat it as
// "not blacklisted".
func (r *Revoker) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	return r.cache.Contains(ctx, token.Hash(tokenString))
}
