// Package auth orchestrates the token codec, session manager, revocation
// cache and identity provider into the login/refresh/logout flows.
package auth

import (
	"context"

	"github.com/kochabx/membership/core/auth/blacklist"
	"github.com/kochabx/membership/core/auth/fingerprint"
	"github.com/kochabx/membership/core/auth/session"
	"github.com/kochabx/membership/core/auth/token"
	"github.com/kochabx/membership/errors"
	"github.com/kochabx/membership/log"
)

// Principal is the authenticated identity as the identity provider
// currently knows it. Authorities are aggregated from assigned roles.
type Principal struct {
	ID          string
	Enabled     bool
	Locked      bool
	Authorities []string
}

// IdentityProvider is the external collaborator resolving identities.
// It must be queryable synchronously on the request path.
type IdentityProvider interface {
	// VerifyCredentials checks email+password and returns the principal.
	// A mismatch yields an unauthorized error.
	VerifyCredentials(ctx context.Context, email, password string) (*Principal, error)

	// PrincipalByID resolves a subject id.
	PrincipalByID(ctx context.Context, id string) (*Principal, error)
}

// TokenPair is the login response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
	Subject      string `json:"subject"`
}

// Service wires the session/token core together.
type Service struct {
	codec      *token.Codec
	sessions   *session.Manager
	revoker    *blacklist.Revoker
	identities IdentityProvider
}

// NewService wires the authentication service.
func NewService(codec *token.Codec, sessions *session.Manager, revoker *blacklist.Revoker, identities IdentityProvider) *Service {
	return &Service{
		codec:      codec,
		sessions:   sessions,
		revoker:    revoker,
		identities: identities,
	}
}

// Revoker exposes the revocation cache for the authentication gate.
func (s *Service) Revoker() *blacklist.Revoker {
	return s.revoker
}

// Codec exposes the token codec for the authentication gate.
func (s *Service) Codec() *token.Codec {
	return s.codec
}

// Authenticate resolves a presented access token to its principal for the
// duration of one request. Outcomes:
//
//   - blacklist cache unreachable: a service-unavailable error, the caller
//     must fail closed rather than assume the token is good
//   - token blacklisted: an unauthorized error
//   - token unverifiable or subject unknown/disabled/locked: (nil, nil),
//     the request proceeds unauthenticated
//   - otherwise the principal with its current authorities
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	blacklisted, err := s.revoker.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, errLogInAgain()
	}

	identity, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, nil
	}

	principal, err := s.identities.PrincipalByID(ctx, identity.Subject)
	if err != nil || principal == nil {
		return nil, nil
	}
	if !principal.Enabled || principal.Locked {
		return nil, nil
	}

	return principal, nil
}

// errLogInAgain is the uniform client-facing outcome for every invalid,
// expired or revoked token; which defense triggered is never surfaced.
func errLogInAgain() *errors.Error {
	return errors.Unauthorized("invalid or expired credentials, please log in again")
}

// Login verifies credentials, creates or reuses a session and mints the
// token pair.
func (s *Service) Login(ctx context.Context, email, password string, meta fingerprint.Meta) (*TokenPair, error) {
	principal, err := s.identities.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !principal.Enabled || principal.Locked {
		return nil, errors.Forbidden("account is disabled or locked")
	}

	accessToken, err := s.codec.IssueAccessToken(principal.ID, principal.Authorities)
	if err != nil {
		return nil, errors.Wrap(err, 500, "issue access token")
	}
	refreshToken, err := s.codec.IssueRefreshToken(principal.ID)
	if err != nil {
		return nil, errors.Wrap(err, 500, "issue refresh token")
	}

	if _, err := s.sessions.CreateSession(ctx, principal.ID, refreshToken, accessToken, meta); err != nil {
		return nil, errors.Wrap(err, 503, "persist session")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTokenTTL().Seconds()),
		Subject:      principal.ID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated. The previously issued access
// token is blacklisted once the stored hash swap has decided the winner
// of any concurrent refresh race; the loser observes a retryable
// conflict.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if _, err := s.codec.Verify(refreshToken); err != nil {
		if token.IsVerificationFailure(err) {
			log.Debug().Err(err).Msg("refresh token failed verification")
			return nil, errLogInAgain()
		}
		return nil, errors.Wrap(err, 500, "verify refresh token")
	}

	sess, err := s.sessions.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrRevoked):
			log.Debug().Err(err).Msg("refresh token rejected by session store")
			return nil, errLogInAgain()
		default:
			return nil, errors.Wrap(err, 503, "validate refresh token")
		}
	}

	principal, err := s.identities.PrincipalByID(ctx, sess.OwnerID)
	if err != nil {
		return nil, err
	}
	if !principal.Enabled || principal.Locked {
		return nil, errors.Forbidden("account is disabled or locked")
	}

	previousHash := sess.AccessTokenHash

	accessToken, err := s.codec.IssueAccessToken(principal.ID, principal.Authorities)
	if err != nil {
		return nil, errors.Wrap(err, 500, "issue access token")
	}

	if err := s.sessions.UpdateAccessTokenHash(ctx, sess, accessToken); err != nil {
		if errors.Is(err, session.ErrConflict) {
			return nil, errors.Conflict("concurrent refresh in progress, retry")
		}
		if errors.Is(err, session.ErrNotFound) {
			return nil, errLogInAgain()
		}
		return nil, errors.Wrap(err, 503, "rotate access token hash")
	}

	if err := s.revoker.BlacklistByHash(ctx, previousHash); err != nil {
		// The new token is already live; surface the fault loudly
		// rather than pretending the old one is dead.
		log.Error().Err(err).Str("session", sess.ID).Msg("failed to blacklist superseded access token")
		return nil, err
	}

	return &TokenPair{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.codec.AccessTokenTTL().Seconds()),
		Subject:     principal.ID,
	}, nil
}

// Logout revokes the session holding the refresh token and blacklists
// the access token. The blacklist write happens before the store
// revoke: a partial failure then leans toward over-blacklisting, which
// is the safe side. Unknown sessions are a no-op success.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if accessToken != "" {
		if err := s.revoker.Blacklist(ctx, accessToken); err != nil {
			return err
		}
	}

	sess, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, 503, "find session")
	}

	if err := s.revoker.BlacklistByHash(ctx, sess.AccessTokenHash); err != nil {
		return err
	}
	if err := s.sessions.RevokeSession(ctx, sess.ID); err != nil {
		return errors.Wrap(err, 503, "revoke session")
	}
	return nil
}

// LogoutAll revokes every session of the owner and blacklists each
// stored access-token hash. The walk covers non-revoked sessions, not
// just active ones: an expired session's last access token can outlive
// the session by up to the access-token TTL. Blacklist failures are
// logged and the walk continues; the store revoke still runs so the
// operation makes progress, and any blacklist failure is reported
// afterwards.
func (s *Service) LogoutAll(ctx context.Context, ownerID string) (int64, error) {
	sessions, err := s.sessions.ListNonRevokedSessions(ctx, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, 503, "list sessions")
	}

	var blacklistErr error
	for _, sess := range sessions {
		if sess.AccessTokenHash == "" {
			continue
		}
		if err := s.revoker.BlacklistByHash(ctx, sess.AccessTokenHash); err != nil {
			log.Error().Err(err).Str("session", sess.ID).Msg("failed to blacklist access token during logout-all")
			blacklistErr = err
		}
	}

	revoked, err := s.sessions.RevokeAll(ctx, ownerID)
	if err != nil {
		return revoked, errors.Wrap(err, 503, "revoke sessions")
	}
	return revoked, blacklistErr
}

// Sessions lists the owner's active sessions, oldest first.
func (s *Service) Sessions(ctx context.Context, ownerID string) ([]*session.Session, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, 503, "list sessions")
	}
	return sessions, nil
}

// RevokeSession revokes one of the caller's own sessions. A session id
// that does not belong to the caller is indistinguishable from an
// unknown one.
func (s *Service) RevokeSession(ctx context.Context, ownerID, sessionID string) error {
	sessions, err := s.sessions.ListActiveSessions(ctx, ownerID)
	if err != nil {
		return errors.Wrap(err, 503, "list sessions")
	}

	for _, sess := range sessions {
		if sess.ID != sessionID {
			continue
		}
		if err := s.revoker.BlacklistByHash(ctx, sess.AccessTokenHash); err != nil {
			return err
		}
		if err := s.sessions.RevokeSession(ctx, sess.ID); err != nil {
			return errors.Wrap(err, 503, "revoke session")
		}
		return nil
	}

	return errors.NotFound("session not found")
}
