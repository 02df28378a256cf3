package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	Prom = New()
)

type Prometheus struct {
	registry *prometheus.Registry

	Logins               *prometheus.CounterVec
	Refreshes            *prometheus.CounterVec
	SessionsEvicted      prometheus.Counter
	BlacklistRejections  prometheus.Counter
	BlacklistUnavailable prometheus.Counter
}

func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "refreshes_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "sessions_evicted_total",
			Help:      "Sessions evicted by the per-owner ceiling.",
		}),
		BlacklistRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "blacklist_rejections_total",
			Help:      "Requests rejected because the token was blacklisted.",
		}),
		BlacklistUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auth",
			Name:      "blacklist_unavailable_total",
			Help:      "Requests failed closed because the blacklist cache was unreachable.",
		}),
	}

	p.registry.MustRegister(
		p.Logins,
		p.Refreshes,
		p.SessionsEvicted,
		p.BlacklistRejections,
		p.BlacklistUnavailable,
	)

	return p
}

func (p *Prometheus) WithGoCollectorRuntimeMetrics() {
	p.registry.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
	))
}

func (p *Prometheus) WithBuildInfoCollector() {
	p.registry.MustRegister(collectors.NewBuildInfoCollector())
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
