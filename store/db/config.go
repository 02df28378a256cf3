package db

import (
	"fmt"
	"strings"
	"time"
)

// Driver 数据库驱动类型
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string {
	return string(d)
}

// LogLevel gorm 日志级别
type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// ParseLogLevel 解析日志级别字符串
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	default:
		return LogLevelSilent
	}
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `json:"maxIdleConns" mapstructure:"maxIdleConns"`
	MaxOpenConns    int           `json:"maxOpenConns" mapstructure:"maxOpenConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" mapstructure:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" mapstructure:"connMaxIdleTime"`
}

// Config 数据库配置
type Config struct {
	Driver   Driver `json:"driver" mapstructure:"driver"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`

	// DSN 非空时覆盖自动拼接的连接串，sqlite 必填（数据库文件路径）
	DSN string `json:"dsn" mapstructure:"dsn"`

	Pool  PoolConfig `json:"pool" mapstructure:"pool"`
	Level string     `json:"level" mapstructure:"level"`
}

func (c *Config) init() error {
	if c.Driver == "" {
		c.Driver = DriverMySQL
	}
	switch c.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return ErrUnsupportedDriver
	}

	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		switch c.Driver {
		case DriverMySQL:
			c.Port = 3306
		case DriverPostgres:
			c.Port = 5432
		}
	}
	if c.Pool.MaxIdleConns == 0 {
		c.Pool.MaxIdleConns = 10
	}
	if c.Pool.MaxOpenConns == 0 {
		c.Pool.MaxOpenConns = 100
	}
	if c.Pool.ConnMaxLifetime == 0 {
		c.Pool.ConnMaxLifetime = time.Hour
	}
	if c.Pool.ConnMaxIdleTime == 0 {
		c.Pool.ConnMaxIdleTime = 10 * time.Minute
	}
	return nil
}

func (c *Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local&timeout=10s",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case DriverSQLite:
		return c.Database
	default:
		return ""
	}
}
