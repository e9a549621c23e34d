package decode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Subsystem: "decode",
		Name:      "frames_total",
		Help:      "Pictures decoded and encoded to JPEG",
	})

	metricReconfigures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scrcpy",
		Subsystem: "decode",
		Name:      "reconfigures_total",
		Help:      "Color converter rebuilds after a dimension change",
	})
)
