package scrcpy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Name:      "packets_received_total",
		Help:      "Video packets demuxed from the device stream",
	})

	metricPacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Name:      "packets_dropped_total",
		Help:      "Packets discarded for an out-of-range payload size",
	})

	metricFramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Name:      "frames_skipped_total",
		Help:      "Packets that failed to decode, convert or send",
	})

	metricFallbackCaptures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Name:      "fallback_captures_total",
		Help:      "JPEG frames produced by the screencap fallback",
	})

	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scrcpy",
		Name:      "active_sessions",
		Help:      "Mirroring sessions currently open",
	})
)
