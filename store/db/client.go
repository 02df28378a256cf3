package db

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kochabx/membership/log"
)

// Client 数据库客户端
type Client struct {
	config Config
	db     *gorm.DB
	sqlDB  *sql.DB
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

// New 创建新的数据库客户端
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = log.G
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.logger.Debug().
		Str("driver", cfg.Driver.String()).
		Msg("database client created")

	return c, nil
}

func (c *Client) connect() error {
	dialector, err := c.dialector()
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, c.gormConfig())
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	pool := c.config.Pool
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	c.db = db
	c.sqlDB = sqlDB
	return nil
}

func (c *Client) dialector() (gorm.Dialector, error) {
	dsn := c.config.dsn()

	switch c.config.Driver {
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

func (c *Client) gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(newGormLogWriter(c.logger), logger.Config{
			LogLevel:                  logger.LogLevel(ParseLogLevel(c.config.Level)),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	}
}

// DB 获取 GORM 数据库实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping 测试数据库连接
func (c *Client) Ping(ctx context.Context) error {
	if c.sqlDB == nil {
		return ErrNotInitialized
	}
	return c.sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	if c.sqlDB != nil {
		return c.sqlDB.Close()
	}
	return nil
}

// IsHealthy 返回健康状态
func (c *Client) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.Ping(ctx) == nil
}

// gormLogWriter 适配 log 到 GORM logger.Writer
type gormLogWriter struct {
	logger *log.Logger
}

func newGormLogWriter(l *log.Logger) *gormLogWriter {
	return &gormLogWriter{logger: l}
}

func (w *gormLogWriter) Printf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Info().Msgf(format, args...)
	}
}
