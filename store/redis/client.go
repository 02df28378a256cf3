package redis

import (
	"context"
	"runtime"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/membership/log"
)

// Client Redis 统一客户端（支持单机/集群/哨兵模式）
type Client struct {
	client redis.UniversalClient
	config *Config
	logger *log.Logger
}

// Option 客户端配置选项
type Option func(*Client)

// WithLogger 设置日志记录器
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New 创建新的 Redis 客户端
// 根据配置自动选择单机/集群/哨兵模式
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	c := &Client{config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = log.G
	}

	c.client = redis.NewUniversalClient(buildUniversalOptions(cfg))

	if err := c.Ping(context.Background()); err != nil {
		_ = c.client.Close()
		return nil, err
	}

	c.logger.Debug().Str("mode", c.mode()).Interface("addrs", cfg.Addrs).Msg("redis client created")
	return c, nil
}

func buildUniversalOptions(cfg *Config) *redis.UniversalOptions {
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 10 * runtime.GOMAXPROCS(0)
	}

	return &redis.UniversalOptions{
		Addrs:      cfg.Addrs,
		MasterName: cfg.MasterName,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,

		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,

		PoolSize:     poolSize,
		MinIdleConns: cfg.MinIdleConns,
		PoolTimeout:  cfg.PoolTimeout,

		MaxRetries: cfg.MaxRetries,
	}
}

// UniversalClient 获取底层 redis.UniversalClient
func (c *Client) UniversalClient() redis.UniversalClient {
	return c.client
}

// AddHook 注册客户端 Hook
func (c *Client) AddHook(hook redis.Hook) {
	c.client.AddHook(hook)
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭客户端
func (c *Client) Close() error {
	err := c.client.Close()
	c.logger.Debug().Msg("redis client closed")
	return err
}

func (c *Client) mode() string {
	switch {
	case c.config.MasterName != "":
		return "sentinel"
	case len(c.config.Addrs) > 1:
		return "cluster"
	default:
		return "single"
	}
}
