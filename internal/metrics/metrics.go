// Package metrics exposes Prometheus collectors for the premium monitor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "premiumwatch"

// Metrics groups every collector the monitor updates.
type Metrics struct {
	PremiumPct       prometheus.Gauge
	INAV             prometheus.Gauge
	MarketPrice      prometheus.Gauge
	OfficialNAV      prometheus.Gauge
	LatchFired       prometheus.Gauge
	MarketOpen       prometheus.Gauge
	Steps            *prometheus.CounterVec
	Failures         *prometheus.CounterVec
	Alerts           prometheus.Counter
	DispatchFailures *prometheus.CounterVec
	NavRefreshes     *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PremiumPct: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "premium_percent",
			Help: "Latest market premium over estimated iNAV, in percent.",
		}),
		INAV: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "inav",
			Help: "Latest estimated indicative NAV.",
		}),
		MarketPrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "market_price",
			Help: "Latest fund market price.",
		}),
		OfficialNAV: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "official_nav",
			Help: "Official NAV in use for iNAV estimation.",
		}),
		LatchFired: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "alert_latch_fired",
			Help: "1 when today's alert has fired, 0 when armed.",
		}),
		MarketOpen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "market_open",
			Help: "1 while the exchange session is open.",
		}),
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "steps_total",
			Help: "Scheduler steps by resulting action.",
		}, []string{"action"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycle_failures_total",
			Help: "Skipped poll cycles by failure kind.",
		}, []string{"kind"}),
		Alerts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_total",
			Help: "Alerts fired.",
		}),
		DispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatch_failures_total",
			Help: "Failed notification deliveries by channel.",
		}, []string{"channel"}),
		NavRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "nav_refreshes_total",
			Help: "Official NAV refreshes by source.",
		}, []string{"source"}),
	}
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}

// SetLatchFired records the latch position.
func (m *Metrics) SetLatchFired(fired bool) {
	boolGauge(m.LatchFired, fired)
}

// SetMarketOpen records whether the session is open.
func (m *Metrics) SetMarketOpen(open bool) {
	boolGauge(m.MarketOpen, open)
}
