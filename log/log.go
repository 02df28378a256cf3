package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 日志记录器
type Logger struct {
	zerolog.Logger
	closer io.Closer
}

func init() {
	zerolog.TimeFieldFormat = time.DateTime
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// Option Logger 选项函数
type Option func(*Logger)

// WithLevel 设置日志级别
func WithLevel(level zerolog.Level) Option {
	return func(l *Logger) {
		l.Logger = l.Logger.Level(level)
	}
}

// WithCaller 设置调用栈信息
func WithCaller() Option {
	return func(l *Logger) {
		l.Logger = l.Logger.With().Caller().Logger()
	}
}

// FileConfig 日志文件配置
type FileConfig struct {
	Filename   string `json:"filename"`
	MaxSize    int    `json:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `json:"maxBackups"` // 保留的旧日志文件数量
	MaxAge     int    `json:"maxAge"`     // 日志文件保留天数
	Compress   bool   `json:"compress"`
}

func (c *FileConfig) applyDefaults() {
	if c.Filename == "" {
		c.Filename = "log/app.log"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 30
	}
}

func newLogger(w io.Writer, opts ...Option) *Logger {
	logger := &Logger{
		Logger: zerolog.New(w).With().Timestamp().Logger(),
	}

	for _, opt := range opts {
		opt(logger)
	}

	return logger
}

// New 创建新的 Logger 实例，输出到控制台
func New(opts ...Option) *Logger {
	return newLogger(console(), opts...)
}

// NewFile 创建文件输出的 Logger
func NewFile(c FileConfig, opts ...Option) *Logger {
	w := fileWriter(c)
	logger := newLogger(w, opts...)
	logger.closer = w
	return logger
}

// NewMulti 创建同时输出到文件和控制台的 Logger
func NewMulti(c FileConfig, opts ...Option) *Logger {
	fw := fileWriter(c)
	logger := newLogger(zerolog.MultiLevelWriter(fw, console()), opts...)
	logger.closer = fw
	return logger
}

// Close 关闭日志记录器，释放资源
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// ParseLevel 解析日志级别字符串，未知值回退到 info
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func console() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		},
	}
}

func fileWriter(c FileConfig) *lumberjack.Logger {
	c.applyDefaults()
	return &lumberjack.Logger{
		Filename:   c.Filename,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}
