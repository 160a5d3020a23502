package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
)

var (
	backendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz_client",
			Name:      "backend_calls_total",
			Help:      "Backend calls by operation and outcome kind.",
		},
		[]string{"op", "outcome"},
	)

	optimisticPatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz_client",
			Name:      "optimistic_patches_total",
			Help:      "Local participant patches applied after a successful join or leave.",
		},
		[]string{"op"},
	)

	refetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meetupz_client",
			Name:      "refetch_failures_total",
			Help:      "Event-triggered refetches that failed, by view.",
		},
		[]string{"view"},
	)
)

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if k, ok := sdkerrors.KindOf(err); ok {
			outcome = k.String()
		}
	}
	backendCallsTotal.WithLabelValues(op, outcome).Inc()
}
