package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz",
			Subsystem: "bus",
			Name:      "publishes_total",
			Help:      "Events published, by kind.",
		},
		[]string{"kind"},
	)

	droppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz",
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Deliveries the executor refused (queue full or closed).",
		},
		[]string{"kind"},
	)

	handlerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz",
			Subsystem: "bus",
			Name:      "handler_failures_total",
			Help:      "Subscriber handlers that returned an error.",
		},
		[]string{"kind"},
	)

	subscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meetupz",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Live subscriptions on the most recently changed bus.",
		},
	)
)
