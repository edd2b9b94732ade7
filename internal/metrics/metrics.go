// Package metrics exposes the coordinator's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ConnectionsActive     prometheus.Gauge
	RoomsActive           prometheus.Gauge
	RelayedMessages       *prometheus.CounterVec
	ChatPersistFailures   prometheus.Counter
	DisconnectsReconciled prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "teleconsult_connections_active",
			Help: "Number of live signaling connections.",
		}),
		RoomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "teleconsult_rooms_active",
			Help: "Number of rooms with at least one live member.",
		}),
		RelayedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teleconsult_relayed_messages_total",
			Help: "Messages fanned out by the signaling relay, by kind.",
		}, []string{"kind"}),
		ChatPersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "teleconsult_chat_persist_failures_total",
			Help: "Chat messages relayed live but not durably appended.",
		}),
		DisconnectsReconciled: factory.NewCounter(prometheus.CounterOpts{
			Name: "teleconsult_disconnects_reconciled_total",
			Help: "Unannounced disconnects cleaned up by the reconciler.",
		}),
	}
}
