package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds codec configuration. The secret is injected once at
// construction; the codec holds no other state.
type Config struct {
	Secret          string `json:"secret" validate:"required"`
	SigningMethod   string `json:"signingMethod"`
	AccessTokenTTL  int64  `json:"accessTokenTTL"`  // seconds, default 1 hour
	RefreshTokenTTL int64  `json:"refreshTokenTTL"` // seconds, default 7 days
	Issuer          string `json:"issuer"`
}

func (c *Config) init() error {
	if c.Secret == "" {
		return ErrEmptySecret
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = 3600
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = 604800
	}
	return nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (c *Config) GetRefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Second
}

func (c *Config) signingMethod() jwt.SigningMethod {
	switch c.SigningMethod {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// Claims carried by issued tokens. Refresh tokens are identity-only:
// their Authorities list is always empty.
type Claims struct {
	jwt.RegisteredClaims
	Authorities []string `json:"authorities,omitempty"`
}

// Identity is the result of a successful verification.
type Identity struct {
	Subject     string
	Authorities []string
	ExpiresAt   time.Time
}

// Codec issues and verifies signed bearer tokens. It is a pure function
// of (input, signing key) and safe for concurrent use.
type Codec struct {
	config *Config
}

// NewCodec creates a codec from the given config.
func NewCodec(config *Config) (*Codec, error) {
	if err := config.init(); err != nil {
		return nil, err
	}
	return &Codec{config: config}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *Codec) AccessTokenTTL() time.Duration {
	return c.config.GetAccessTokenTTL()
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTokenTTL() time.Duration {
	return c.config.GetRefreshTokenTTL()
}

// IssueAccessToken encodes the subject and flattened authority list,
// stamped with issuedAt=now and expiresAt=now+accessTTL.
func (c *Codec) IssueAccessToken(subject string, authorities []string) (string, error) {
	return c.issue(subject, authorities, c.config.GetAccessTokenTTL())
}

// IssueRefreshToken issues an identity-only token with the refresh TTL.
func (c *Codec) IssueRefreshToken(subject string) (string, error) {
	return c.issue(subject, nil, c.config.GetRefreshTokenTTL())
}

func (c *Codec) issue(subject string, authorities []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Authorities: authorities,
	}

	t := jwt.NewWithClaims(c.config.signingMethod(), claims)
	return t.SignedString([]byte(c.config.Secret))
}

// Verify parses and verifies a token. Failures map to exactly one of
// ErrTokenExpired, ErrTokenMalformed or ErrSignatureInvalid.
func (c *Codec) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method != c.config.signingMethod() {
			return nil, ErrSignatureInvalid
		}
		return []byte(c.config.Secret), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	if !t.Valid {
		return nil, ErrTokenMalformed
	}

	identity := &Identity{
		Subject:     claims.Subject,
		Authorities: claims.Authorities,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// SubjectOf verifies the token and returns its subject.
func (c *Codec) SubjectOf(tokenString string) (string, error) {
	identity, err := c.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return identity.Subject, nil
}

// ExpiresAt extracts the expiry of a token without requiring it to still
// be within its validity window. Signature and shape are still checked,
// so a tampered token does not yield a usable expiry.
func (c *Codec) ExpiresAt(tokenString string) (time.Time, error) {
	identity, err := c.Verify(tokenString)
	if err == nil {
		return identity.ExpiresAt, nil
	}
	if !errors.Is(err, ErrTokenExpired) {
		return time.Time{}, err
	}

	// Expired is still an answer here: parse unverified for the stamp.
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, perr := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(c.config.Secret), nil
	}); perr != nil {
		return time.Time{}, mapParseError(perr)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrTokenMalformed
	}
	return claims.ExpiresAt.Time, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrSignatureInvalid):
		return ErrSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}
