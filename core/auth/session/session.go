// Package session holds the durable record of issued refresh tokens and
// the business rules around their lifecycle: deduplication by device
// fingerprint, the per-owner concurrent-session ceiling, validation and
// revocation.
package session

import (
	"time"
)

// Session is one logical login: the stored record of a refresh token
// together with the device it was issued to.
//
// tokenHash is unique across live rows. revoked is monotonic: once true
// it never reverts. A session is active iff revoked=false and
// expiresAt is in the future.
type Session struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID           string    `gorm:"size:36;index" json:"owner_id"`
	TokenHash         string    `gorm:"size:64;uniqueIndex" json:"-"`
	AccessTokenHash   string    `gorm:"size:64" json:"-"` // empty until first issuance
	DeviceFingerprint string    `gorm:"size:64" json:"device"`
	SourceAddress     string    `gorm:"size:45" json:"source_address"`
	IssuedAt          time.Time `json:"issued_at"`
	LastUsedAt        time.Time `json:"last_used_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Revoked           bool      `gorm:"index" json:"revoked"`
}

// TableName names the backing table.
func (Session) TableName() string {
	return "sessions"
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
