package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Health engine collectors, registered on the default registry scraped by
// the /metrics server.
var (
	ProbesTotal = promauto.NewCounterVec(prom.CounterOpts{
		Name: "dealsphere_url_probes_total",
		Help: "URL probes by classified outcome.",
	}, []string{"outcome"})

	InflightProbes = promauto.NewGauge(prom.GaugeOpts{
		Name: "dealsphere_url_probes_inflight",
		Help: "Probe requests currently in flight.",
	})

	DealsRemovedTotal = promauto.NewCounter(prom.CounterOpts{
		Name: "dealsphere_deals_removed_total",
		Help: "Deals soft-deleted for definitively dead URLs.",
	})

	DealsFlaggedTotal = promauto.NewCounter(prom.CounterOpts{
		Name: "dealsphere_deals_flagged_total",
		Help: "Deals moved to pending review after repeated URL failures.",
	})

	ReaperRemovedTotal = promauto.NewCounterVec(prom.CounterOpts{
		Name: "dealsphere_reaper_removed_total",
		Help: "Deals soft-deleted by cleanup sweeps.",
	}, []string{"sweep"})
)
