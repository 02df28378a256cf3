// Package redis 基于 Redis 实现 blacklist.Cache
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/membership/core/auth/blacklist"
	"github.com/kochabx/membership/errors"
)

// Blacklist Redis 黑名单实现
type Blacklist struct {
	client    redis.UniversalClient
	keyPrefix string
}

// Option 黑名单选项
type Option func(*Blacklist)

// WithKeyPrefix 设置 key 前缀
func WithKeyPrefix(prefix string) Option {
	return func(b *Blacklist) {
		b.keyPrefix = prefix
	}
}

// New 创建 Redis 黑名单
func New(client redis.UniversalClient, opts ...Option) *Blacklist {
	b := &Blacklist{
		client:    client,
		keyPrefix: "auth:blacklist:",
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Add 添加 token hash 到黑名单
func (b *Blacklist) Add(ctx context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := b.client.Set(ctx, b.keyPrefix+hash, "1", ttl).Err(); err != nil {
		return errors.ServiceUnavailable("blacklist cache unavailable").WithCause(errors.Join(blacklist.ErrUnavailable, err))
	}
	return nil
}

// Contains 检查 token hash 是否在黑名单中
func (b *Blacklist) Contains(ctx context.Context, hash string) (bool, error) {
	exists, err := b.client.Exists(ctx, b.keyPrefix+hash).Result()
	if err != nil {
		return false, errors.ServiceUnavailable("blacklist cache unavailable").WithCause(errors.Join(blacklist.ErrUnavailable, err))
	}
	return exists > 0, nil
}

// 确保实现接口
var _ blacklist.Cache = (*Blacklist)(nil)
