package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nolossgames/savings-pool-server/pool"
)

// Metrics is an event sink exporting pool activity to Prometheus.
type Metrics struct {
	events       *prometheus.CounterVec
	principal    prometheus.Gauge
	netPrincipal prometheus.Gauge
	interest     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_events_total",
			Help: "Pool events by type.",
		}, []string{"type"}),
		principal: f.NewGauge(prometheus.GaugeOpts{
			Name: "pool_total_principal",
			Help: "Gross principal currently in the game.",
		}),
		netPrincipal: f.NewGauge(prometheus.GaugeOpts{
			Name: "pool_net_total_principal",
			Help: "Net principal currently in the game.",
		}),
		interest: f.NewGauge(prometheus.GaugeOpts{
			Name: "pool_total_game_interest",
			Help: "Interest latched at redemption.",
		}),
	}
}

func (m *Metrics) Emit(e pool.Event) {
	m.events.WithLabelValues(string(e.Type)).Inc()
	m.principal.Set(e.TotalPrincipal.InexactFloat64())
	m.netPrincipal.Set(e.NetTotalPrincipal.InexactFloat64())
	m.interest.Set(e.TotalInterest.InexactFloat64())
}
