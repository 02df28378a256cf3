package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNil redis.Nil 的封装，表示 key 不存在
	ErrNil = redis.Nil

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("redis: invalid configuration")

	// ErrEmptyAddrs 地址列表为空
	ErrEmptyAddrs = errors.New("redis: addrs cannot be empty")
)
