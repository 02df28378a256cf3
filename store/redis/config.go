package redis

import "time"

// Config Redis 客户端配置（支持单机/集群/哨兵模式）
type Config struct {
	// Addrs Redis 地址列表
	// 单机模式: ["localhost:6379"]
	// 集群模式: ["node1:6379", "node2:6379", "node3:6379"]
	// 哨兵模式: ["sentinel1:26379", "sentinel2:26379"]
	Addrs []string `json:"addrs" mapstructure:"addrs"`

	// MasterName 哨兵模式的主节点名称
	MasterName string `json:"masterName" mapstructure:"masterName"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`

	DialTimeout  time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`

	PoolSize     int           `json:"poolSize" mapstructure:"poolSize"`
	MinIdleConns int           `json:"minIdleConns" mapstructure:"minIdleConns"`
	PoolTimeout  time.Duration `json:"poolTimeout" mapstructure:"poolTimeout"`

	// MaxRetries 命令失败后的最大重试次数, -1 禁用
	MaxRetries int `json:"maxRetries" mapstructure:"maxRetries"`
}

// Single 创建单机模式配置
func Single(addr string) *Config {
	return &Config{Addrs: []string{addr}}
}

// Sentinel 创建哨兵模式配置
func Sentinel(masterName string, addrs ...string) *Config {
	return &Config{Addrs: addrs, MasterName: masterName}
}

func (c *Config) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.PoolTimeout == 0 {
		c.PoolTimeout = 4 * time.Second
	}
}

// Validate 验证配置是否有效
func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrEmptyAddrs
	}
	return nil
}
