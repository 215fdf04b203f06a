// Package metrics exposes prometheus counters for sessions and tenant operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services record into. Nop satisfies it for tests.
type Recorder interface {
	RecordSession(result string)
	RecordTenantOp(op, result string)
	RecordPublicCache(result string)
	ObserveStoreLatency(op string, d time.Duration)
}

type Collector struct {
	sessions     *prometheus.CounterVec
	tenantOps    *prometheus.CounterVec
	publicCache  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consultapp_sessions_total",
			Help: "Session mint, resolve and revoke outcomes",
		}, []string{"result"}),
		tenantOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consultapp_tenant_ops_total",
			Help: "Tenant directory operations by outcome",
		}, []string{"op", "result"}),
		publicCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consultapp_public_cache_total",
			Help: "Public tenant view cache lookups",
		}, []string{"result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consultapp_store_latency_seconds",
			Help:    "Document store call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(c.sessions, c.tenantOps, c.publicCache, c.storeLatency)
	return c
}

func (c *Collector) RecordSession(result string) {
	c.sessions.WithLabelValues(result).Inc()
}

func (c *Collector) RecordTenantOp(op, result string) {
	c.tenantOps.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordPublicCache(result string) {
	c.publicCache.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveStoreLatency(op string, d time.Duration) {
	c.storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// Handler serves the registry in the prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type nop struct{}

// Nop discards everything.
var Nop Recorder = nop{}

func (nop) RecordSession(string) {}
func (nop) RecordTenantOp(string, string) {}
func (nop) RecordPublicCache(string) {}
func (nop) ObserveStoreLatency(string, time.Duration) {}
