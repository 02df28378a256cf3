package config

import (
	"time"

	"github.com/kochabx/membership/log"
	"github.com/kochabx/membership/store/db"
	"github.com/kochabx/membership/store/redis"
)

// AppConfig is the full configuration of the membership service.
type AppConfig struct {
	Server   ServerConfig `json:"server" mapstructure:"server"`
	Log      LogConfig    `json:"log" mapstructure:"log"`
	Database db.Config    `json:"database" mapstructure:"database"`
	Redis    redis.Config `json:"redis" mapstructure:"redis"`
	Auth     AuthConfig   `json:"auth" mapstructure:"auth"`
	Jobs     JobsConfig   `json:"jobs" mapstructure:"jobs"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr           string        `json:"addr" mapstructure:"addr"`
	Mode           string        `json:"mode" mapstructure:"mode"` // gin mode
	ShutdownPeriod time.Duration `json:"shutdownPeriod" mapstructure:"shutdownPeriod"`
	EnableMetrics  bool          `json:"enableMetrics" mapstructure:"enableMetrics"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	// File enables rolling-file output alongside the console.
	File     bool           `json:"file" mapstructure:"file"`
	FileConf log.FileConfig `json:"fileConf" mapstructure:"fileConf"`
}

// AuthConfig holds the token/session settings.
type AuthConfig struct {
	// Secret signs every token. Required.
	Secret        string `json:"secret" mapstructure:"secret" validate:"required"`
	SigningMethod string `json:"signingMethod" mapstructure:"signingMethod"`
	Issuer        string `json:"issuer" mapstructure:"issuer"`

	AccessTokenTTL  time.Duration `json:"accessTokenTTL" mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTTL" mapstructure:"refreshTokenTTL"`

	// MaxSessions caps concurrent active sessions per member.
	MaxSessions int `json:"maxSessions" mapstructure:"maxSessions"`

	// BlacklistTTL is the fallback retention for blacklisted hashes
	// whose expiry could not be read from the token.
	BlacklistTTL time.Duration `json:"blacklistTTL" mapstructure:"blacklistTTL"`
}

// JobsConfig holds the background-job settings.
type JobsConfig struct {
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`
}

// ApplyDefaults fills zero-value fields, implements config.Defaulter.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ShutdownPeriod == 0 {
		c.Server.ShutdownPeriod = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = time.Hour
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.MaxSessions == 0 {
		c.Auth.MaxSessions = 5
	}
	if c.Auth.BlacklistTTL == 0 {
		c.Auth.BlacklistTTL = c.Auth.AccessTokenTTL
	}
	if c.Jobs.Concurrency == 0 {
		c.Jobs.Concurrency = 5
	}
}
