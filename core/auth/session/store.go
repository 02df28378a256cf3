package session

import (
	"context"
	"time"
)

// Store is the durable persistence contract for session rows. All
// methods honor context deadlines; infrastructure faults surface as
// errors, never as silent empty results.
type Store interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *Session) error

	// FindByTokenHash returns the session whose refresh-token hash
	// matches, regardless of state. ErrNotFound when absent.
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)

	// FindActive returns the active session for an owner on a given
	// (fingerprint, address) pair. ErrNotFound when there is none.
	FindActive(ctx context.Context, ownerID, fingerprint, address string, now time.Time) (*Session, error)

	// CountActive counts the owner's active sessions.
	CountActive(ctx context.Context, ownerID string, now time.Time) (int64, error)

	// OldestActive returns the owner's active session with the earliest
	// issuedAt. ErrNotFound when the owner has none.
	OldestActive(ctx context.Context, ownerID string, now time.Time) (*Session, error)

	// ListActive returns the owner's active sessions ordered by
	// issuedAt ascending (id ascending as tiebreak).
	ListActive(ctx context.Context, ownerID string, now time.Time) ([]*Session, error)

	// ListNonRevoked returns the owner's non-revoked sessions including
	// expired ones, same ordering as ListActive. Revocation sweeps use
	// it: an expired session's last access token can still be live.
	ListNonRevoked(ctx context.Context, ownerID string) ([]*Session, error)

	// Update persists the rotating columns (tokenHash, accessTokenHash,
	// lastUsedAt, expiresAt) by id. It never writes the revoked flag, so
	// a stale row cannot un-revoke a session.
	Update(ctx context.Context, s *Session) error

	// SwapAccessTokenHash replaces the stored access-token hash only if
	// it still equals expected. ErrConflict when a concurrent writer got
	// there first, ErrNotFound when the session does not exist.
	SwapAccessTokenHash(ctx context.Context, id, expected, next string) error

	// Revoke marks the session revoked. ErrNotFound when absent.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForOwner marks every non-revoked session of the owner
	// revoked and returns how many rows changed.
	RevokeAllForOwner(ctx context.Context, ownerID string) (int64, error)

	// PurgeExpired deletes rows past their expiry and returns the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
