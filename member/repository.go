package member

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound reports a missing member row.
var ErrNotFound = errors.New("member: not found")

// Repository stores members on GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates the repository and migrates the members table.
func NewRepository(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("member: db is nil")
	}
	if err := db.AutoMigrate(&Member{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, m *Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Member, error) {
	var m Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	var m Member
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all members ordered by name ascending.
func (r *Repository) List(ctx context.Context) ([]*Member, error) {
	var members []*Member
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *Repository) Update(ctx context.Context, m *Member) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
