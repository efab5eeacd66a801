// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveConnections tracks connections currently admitted to the hub.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courier",
		Name:      "live_connections",
		Help:      "Number of authenticated live connections.",
	})

	// EnvelopesValidated counts envelope validations by outcome.
	EnvelopesValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courier",
		Name:      "envelopes_validated_total",
		Help:      "Envelope validations by outcome.",
	}, []string{"outcome"})

	// FramesDelivered counts frames pushed to live connections.
	FramesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courier",
		Name:      "frames_delivered_total",
		Help:      "Frames pushed to live connections.",
	})

	// AuthFailures counts rejected credential and token checks.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courier",
		Name:      "auth_failures_total",
		Help:      "Rejected credential and token checks.",
	})
)
