// Package gormstore implements session.Store on a GORM database.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kochabx/membership/core/auth/session"
)

// Store implements session.Store on GORM.
type Store struct {
	db *gorm.DB
}

// New creates the store and migrates the sessions table.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: db is nil")
	}
	if err := db.AutoMigrate(&session.Session{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, row *session.Session) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *Store) FindByTokenHash(ctx context.Context, hash string) (*session.Session, error) {
	var row session.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) FindActive(ctx context.Context, ownerID, fingerprint, address string, now time.Time) (*session.Session, error) {
	var row session.Session
	err := s.activeScope(ctx, ownerID, now).
		Where("device_fingerprint = ? AND source_address = ?", fingerprint, address).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) CountActive(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	var count int64
	err := s.activeScope(ctx, ownerID, now).Count(&count).Error
	return count, err
}

func (s *Store) OldestActive(ctx context.Context, ownerID string, now time.Time) (*session.Session, error) {
	var row session.Session
	err := s.activeScope(ctx, ownerID, now).
		Order("issued_at ASC, id ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) ListActive(ctx context.Context, ownerID string, now time.Time) ([]*session.Session, error) {
	var rows []*session.Session
	err := s.activeScope(ctx, ownerID, now).
		Order("issued_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListNonRevoked(ctx context.Context, ownerID string) ([]*session.Session, error) {
	var rows []*session.Session
	err := s.db.WithContext(ctx).Model(&session.Session{}).
		Where("owner_id = ? AND revoked = ?", ownerID, false).
		Order("issued_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes only the rotating columns. The revoked flag is
// deliberately excluded: a row loaded before a concurrent revoke must
// not flip the session back to live when persisted.
func (s *Store) Update(ctx context.Context, row *session.Session) error {
	return s.db.WithContext(ctx).Model(&session.Session{}).
		Where("id = ?", row.ID).
		Select("token_hash", "access_token_hash", "last_used_at", "expires_at").
		Updates(row).Error
}

func (s *Store) SwapAccessTokenHash(ctx context.Context, id, expected, next string) error {
	result := s.db.WithContext(ctx).Model(&session.Session{}).
		Where("id = ? AND access_token_hash = ?", id, expected).
		Update("access_token_hash", next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a vanished session from a lost race.
		var count int64
		if err := s.db.WithContext(ctx).Model(&session.Session{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return session.ErrNotFound
		}
		return session.ErrConflict
	}
	return nil
}

func (s *Store) Revoke(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&session.Session{}).
		Where("id = ?", id).
		Update("revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&session.Session{}).
		Where("owner_id = ? AND revoked = ?", ownerID, false).
		Update("revoked", true)
	return result.RowsAffected, result.Error
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&session.Session{})
	return result.RowsAffected, result.Error
}

func (s *Store) activeScope(ctx context.Context, ownerID string, now time.Time) *gorm.DB {
	return s.db.WithContext(ctx).Model(&session.Session{}).
		Where("owner_id = ? AND revoked = ? AND expires_at > ?", ownerID, false, now)
}

// interface compliance
var _ session.Store = (*Store)(nil)
