package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instruments for the panel's own /metrics endpoint.
var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Name:      "checks_total",
		Help:      "Availability and reachability checks by kind and result.",
	}, []string{"kind", "result"})

	SiteUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "opsdeck",
		Name:      "site_up",
		Help:      "Whether the last check of a business site passed.",
	}, []string{"site"})

	SiteResponseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "opsdeck",
		Name:      "site_response_seconds",
		Help:      "Business site check response time.",
		Buckets:   prometheus.DefBuckets,
	})

	ServersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "opsdeck",
		Name:      "servers_online",
		Help:      "Servers with a live agent heartbeat.",
	})

	TerminalSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "opsdeck",
		Name:      "terminal_sessions",
		Help:      "Open SSH terminal sessions.",
	})

	HeartbeatsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Name:      "heartbeats_received_total",
		Help:      "Agent heartbeats accepted.",
	})

	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Name:      "backup_runs_total",
		Help:      "Finished backup and restore jobs by kind and result.",
	}, []string{"kind", "result"})
)

// checkResult converts a boolean outcome into a metric label.
func checkResult(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
