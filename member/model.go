// Package member 实现会员注册 CRUD，并作为认证网关使用的身份提供方。
package member

import (
	"strings"
	"time"
)

const (
	// RoleUser 默认角色
	RoleUser = "ROLE_USER"
	// RoleAdmin 管理员角色
	RoleAdmin = "ROLE_ADMIN"
)

// Member 会员
type Member struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:25;not null" json:"name"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"size:12;not null" json:"phone"`
	PasswordHash string    `gorm:"size:60;not null" json:"-"`
	Enabled      bool      `gorm:"not null;default:true" json:"enabled"`
	Locked       bool      `gorm:"not null;default:false" json:"locked"`
	Roles        string    `gorm:"size:255;not null" json:"roles"` // 逗号分隔的权限列表
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 表名
func (Member) TableName() string {
	return "members"
}

// Authorities 返回从角色展开的权限列表
func (m *Member) Authorities() []string {
	if m.Roles == "" {
		return nil
	}

	parts := strings.Split(m.Roles, ",")
	authorities := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authorities = append(authorities, p)
		}
	}
	return authorities
}

// RegisterInput 注册请求
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=25,excludesall=0123456789"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,numeric,min=10,max=12"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateInput 更新请求
type UpdateInput struct {
	Name  string `json:"name" validate:"required,max=25,excludesall=0123456789"`
	Phone string `json:"phone" validate:"required,numeric,min=10,max=12"`
}

// ChangePasswordInput 修改密码请求
type ChangePasswordInput struct {
	Current string `json:"current" validate:"required"`
	New     string `json:"new" validate:"required,min=8,max=72"`
}
