// The membership server: member registration CRUD fronted by a JWT
// session backend with per-device sessions and a revocation blacklist.
package main

import (
	"context"
	"os"

	"github.com/kochabx/membership/app"
	"github.com/kochabx/membership/config"
	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/core/auth/blacklist"
	redisbl "github.com/kochabx/membership/core/auth/blacklist/redis"
	"github.com/kochabx/membership/core/auth/session"
	"github.com/kochabx/membership/core/auth/session/gormstore"
	"github.com/kochabx/membership/core/auth/token"
	"github.com/kochabx/membership/handler"
	"github.com/kochabx/membership/jobs"
	"github.com/kochabx/membership/log"
	"github.com/kochabx/membership/member"
	"github.com/kochabx/membership/store/db"
	"github.com/kochabx/membership/store/redis"
	transporthttp "github.com/kochabx/membership/transport/http"
	"github.com/kochabx/membership/transport/http/metrics"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	var cfg config.AppConfig
	loader := config.New(&cfg)
	if err := loader.Load(); err != nil {
		return err
	}
	if err := loader.Watch(); err != nil {
		return err
	}

	setupLogger(cfg.Log)

	// Storage.
	database, err := db.New(cfg.Database)
	if err != nil {
		return err
	}

	cache, err := redis.New(&cfg.Redis)
	if err != nil {
		return err
	}

	// Token/session core.
	codec, err := token.NewCodec(&token.Config{
		Secret:          cfg.Auth.Secret,
		SigningMethod:   cfg.Auth.SigningMethod,
		AccessTokenTTL:  int64(cfg.Auth.AccessTokenTTL.Seconds()),
		RefreshTokenTTL: int64(cfg.Auth.RefreshTokenTTL.Seconds()),
		Issuer:          cfg.Auth.Issuer,
	})
	if err != nil {
		return err
	}

	sessionStore, err := gormstore.New(database.DB())
	if err != nil {
		return err
	}
	sessions := session.NewManager(sessionStore,
		session.WithMaxSessions(cfg.Auth.MaxSessions),
		session.WithRefreshTTL(cfg.Auth.RefreshTokenTTL),
		session.WithEvictionCallback(func(string) { metrics.Prom.SessionsEvicted.Inc() }),
	)

	revoker := blacklist.NewRevoker(
		redisbl.New(cache.UniversalClient()),
		codec.ExpiresAt,
		blacklist.WithDefaultTTL(cfg.Auth.BlacklistTTL),
	)

	// Members double as the identity provider.
	memberRepo, err := member.NewRepository(database.DB())
	if err != nil {
		return err
	}
	members := member.NewService(memberRepo)

	authSvc := auth.NewService(codec, sessions, revoker, members)

	// Background maintenance.
	runner, err := jobs.NewRunner(cfg.Jobs.Concurrency)
	if err != nil {
		return err
	}
	if err := runner.Register(jobs.PurgeExpiredSessions(sessions)); err != nil {
		return err
	}
	runner.Start()

	// HTTP surface.
	router := handler.NewRouter(handler.RouterConfig{Mode: cfg.Server.Mode}, authSvc, members)
	server := transporthttp.NewServer(cfg.Server.Addr, router,
		transporthttp.WithMeta(transporthttp.Meta{Name: "membership"}),
		transporthttp.WithHealthOptions(transporthttp.HealthOption{Enabled: true}),
		transporthttp.WithMetricsOptions(transporthttp.MetricsOption{
			Enabled:            cfg.Server.EnableMetrics,
			EnabledGoCollector: true,
		}),
	)

	application := app.New(
		app.WithServer(server),
		app.WithShutdownTimeout(cfg.Server.ShutdownPeriod),
		app.WithClose("jobs", runner.Stop, 0),
		app.WithClose("redis", func(context.Context) error { return cache.Close() }, 0),
		app.WithClose("database", func(context.Context) error { return database.Close() }, 0),
	)

	return application.Start()
}

func setupLogger(cfg config.LogConfig) {
	opts := []log.Option{log.WithLevel(log.ParseLevel(cfg.Level))}

	if cfg.File {
		log.SetGlobalLogger(log.NewMulti(cfg.FileConf, opts...))
		return
	}
	log.SetGlobalLogger(log.New(opts...))
}
